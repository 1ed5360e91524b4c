package domain_test

import (
	"testing"

	"github.com/fleetsight/fleetsight-go/internal/domain"
)

func TestErrConflict_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *domain.ErrConflict
		want string
	}{
		{"transaction id", domain.TransactionConflict("TRX-1"), `transaction with transaction_id "TRX-1" already exists`},
		{"field only", &domain.ErrConflict{Resource: "vehicle", Field: "vin"}, "vehicle with this vin already exists"},
		{"bare", &domain.ErrConflict{Resource: "driver"}, "driver already exists"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrNotFound_Error(t *testing.T) {
	err := &domain.ErrNotFound{Resource: "transaction", ID: "tx-9"}
	if got, want := err.Error(), `transaction "tx-9" not found`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
