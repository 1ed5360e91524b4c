package domain

import (
	"fmt"
	"time"
)

// ============================================================
// Vehicles
// ============================================================

// VehicleStatus is the operational state of a vehicle.
type VehicleStatus string

const (
	VehicleActive      VehicleStatus = "active"
	VehicleMaintenance VehicleStatus = "maintenance"
	VehicleRepair      VehicleStatus = "repair"
	VehicleInactive    VehicleStatus = "inactive"
	VehicleReserved    VehicleStatus = "reserved"
)

func (s VehicleStatus) Valid() bool {
	switch s {
	case VehicleActive, VehicleMaintenance, VehicleRepair, VehicleInactive, VehicleReserved:
		return true
	}
	return false
}

// VehicleType is the general classification of a vehicle.
type VehicleType string

const (
	VehicleCar        VehicleType = "car"
	VehicleTruck      VehicleType = "truck"
	VehicleVan        VehicleType = "van"
	VehicleSUV        VehicleType = "suv"
	VehicleMotorcycle VehicleType = "motorcycle"
	VehicleOther      VehicleType = "other"
)

func (t VehicleType) Valid() bool {
	switch t {
	case VehicleCar, VehicleTruck, VehicleVan, VehicleSUV, VehicleMotorcycle, VehicleOther:
		return true
	}
	return false
}

// Vehicle represents a vehicle within the managed fleet.
type Vehicle struct {
	ID           string        `json:"id"`
	Make         string        `json:"make"`
	Model        string        `json:"model"`
	Year         int           `json:"year"`
	LicensePlate string        `json:"license_plate"`
	VIN          string        `json:"vin"`
	Status       VehicleStatus `json:"status"`
	VehicleType  VehicleType   `json:"vehicle_type"`
	Mileage      *int64        `json:"mileage,omitempty"`
	FuelType     *string       `json:"fuel_type,omitempty"`
	Color        *string       `json:"color,omitempty"`
	Notes        *string       `json:"notes,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Validate checks required vehicle fields. Status defaults to active.
func (v *Vehicle) Validate() error {
	if v.Make == "" {
		return &ErrValidation{Field: "make", Message: "required"}
	}
	if v.Model == "" {
		return &ErrValidation{Field: "model", Message: "required"}
	}
	if v.Year < 1900 || v.Year > 2100 {
		return &ErrValidation{Field: "year", Message: "must be between 1900 and 2100"}
	}
	if v.LicensePlate == "" {
		return &ErrValidation{Field: "license_plate", Message: "required"}
	}
	if v.VIN == "" {
		return &ErrValidation{Field: "vin", Message: "required"}
	}
	if v.Status == "" {
		v.Status = VehicleActive
	}
	if !v.Status.Valid() {
		return &ErrValidation{Field: "status", Message: fmt.Sprintf("unknown status '%s'", v.Status)}
	}
	if !v.VehicleType.Valid() {
		return &ErrValidation{Field: "vehicle_type", Message: fmt.Sprintf("unknown vehicle type '%s'", v.VehicleType)}
	}
	if v.Mileage != nil && *v.Mileage < 0 {
		return &ErrValidation{Field: "mileage", Message: "must not be negative"}
	}
	return nil
}

// VehicleUpdate is a partial update; nil fields are left untouched.
type VehicleUpdate struct {
	Make         *string        `json:"make,omitempty"`
	Model        *string        `json:"model,omitempty"`
	Year         *int           `json:"year,omitempty"`
	LicensePlate *string        `json:"license_plate,omitempty"`
	VIN          *string        `json:"vin,omitempty"`
	Status       *VehicleStatus `json:"status,omitempty"`
	VehicleType  *VehicleType   `json:"vehicle_type,omitempty"`
	Mileage      *int64         `json:"mileage,omitempty"`
	FuelType     *string        `json:"fuel_type,omitempty"`
	Color        *string        `json:"color,omitempty"`
	Notes        *string        `json:"notes,omitempty"`
}

// Apply copies the set fields of u onto v.
func (u *VehicleUpdate) Apply(v *Vehicle) {
	if u.Make != nil {
		v.Make = *u.Make
	}
	if u.Model != nil {
		v.Model = *u.Model
	}
	if u.Year != nil {
		v.Year = *u.Year
	}
	if u.LicensePlate != nil {
		v.LicensePlate = *u.LicensePlate
	}
	if u.VIN != nil {
		v.VIN = *u.VIN
	}
	if u.Status != nil {
		v.Status = *u.Status
	}
	if u.VehicleType != nil {
		v.VehicleType = *u.VehicleType
	}
	if u.Mileage != nil {
		v.Mileage = u.Mileage
	}
	if u.FuelType != nil {
		v.FuelType = u.FuelType
	}
	if u.Color != nil {
		v.Color = u.Color
	}
	if u.Notes != nil {
		v.Notes = u.Notes
	}
}

// ============================================================
// Drivers
// ============================================================

// Driver represents a driver associated with the fleet.
type Driver struct {
	ID            string     `json:"id"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	Email         *string    `json:"email,omitempty"`
	Phone         *string    `json:"phone,omitempty"`
	LicenseNumber string     `json:"license_number"`
	LicenseExpiry *time.Time `json:"license_expiry,omitempty"`
	Status        string     `json:"status"`
	Notes         *string    `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (d *Driver) Validate() error {
	if d.FirstName == "" {
		return &ErrValidation{Field: "first_name", Message: "required"}
	}
	if d.LastName == "" {
		return &ErrValidation{Field: "last_name", Message: "required"}
	}
	if d.LicenseNumber == "" {
		return &ErrValidation{Field: "license_number", Message: "required"}
	}
	if d.Status == "" {
		d.Status = "active"
	}
	return nil
}

// DriverUpdate is a partial update; nil fields are left untouched.
type DriverUpdate struct {
	FirstName     *string    `json:"first_name,omitempty"`
	LastName      *string    `json:"last_name,omitempty"`
	Email         *string    `json:"email,omitempty"`
	Phone         *string    `json:"phone,omitempty"`
	LicenseNumber *string    `json:"license_number,omitempty"`
	LicenseExpiry *time.Time `json:"license_expiry,omitempty"`
	Status        *string    `json:"status,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
}

func (u *DriverUpdate) Apply(d *Driver) {
	if u.FirstName != nil {
		d.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		d.LastName = *u.LastName
	}
	if u.Email != nil {
		d.Email = u.Email
	}
	if u.Phone != nil {
		d.Phone = u.Phone
	}
	if u.LicenseNumber != nil {
		d.LicenseNumber = *u.LicenseNumber
	}
	if u.LicenseExpiry != nil {
		d.LicenseExpiry = u.LicenseExpiry
	}
	if u.Status != nil {
		d.Status = *u.Status
	}
	if u.Notes != nil {
		d.Notes = u.Notes
	}
}

// ============================================================
// Pagination
// ============================================================

// Page selects a window of a listing by skip + limit.
type Page struct {
	Skip  int
	Limit int
}

// DefaultPage is used when the caller does not ask for a window.
var DefaultPage = Page{Skip: 0, Limit: 100}
