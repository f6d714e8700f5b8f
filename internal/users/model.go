package users

import (
	"errors"
	"strings"

	"rideconnect/internal/store"
	"rideconnect/pkg/validation"
)

// RegisterRequest is the body for POST /api/auth/register.
type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	Role            string `json:"role"`
	VehicleModel    string `json:"vehicleModel,omitempty"`
	LicensePlate    string `json:"licensePlate,omitempty"`
	VehicleCapacity int    `json:"vehicleCapacity,omitempty"`
	VehiclePhoto    string `json:"vehiclePhoto,omitempty"`
}

// Validate checks the request and converts it to store input.
// Only passengers and drivers may self-register; drivers must describe a vehicle.
func (r RegisterRequest) Validate() (store.SignUpData, error) {
	if !validation.ValidateName(r.Name) {
		return store.SignUpData{}, errors.New("name must be 2-200 characters")
	}
	if !validation.ValidateEmail(r.Email) {
		return store.SignUpData{}, errors.New("invalid email")
	}
	if !validation.ValidatePhone(r.Phone) {
		return store.SignUpData{}, errors.New("invalid phone")
	}
	if !validation.ValidatePassword(r.Password) {
		return store.SignUpData{}, errors.New("password must be 6-100 characters")
	}
	role, ok := store.ParseRole(r.Role)
	if r.Role == "" {
		role, ok = store.RolePassenger, true
	}
	if !ok || role == store.RoleAdmin {
		return store.SignUpData{}, errors.New("role must be passenger or driver")
	}

	data := store.SignUpData{
		Name:  strings.TrimSpace(r.Name),
		Email: strings.TrimSpace(r.Email),
		Phone: strings.TrimSpace(r.Phone),
		Role:  role,
	}
	if role == store.RoleDriver {
		v, err := vehicle(r.VehicleModel, r.LicensePlate, r.VehicleCapacity, r.VehiclePhoto)
		if err != nil {
			return store.SignUpData{}, err
		}
		data.Vehicle = v
	}
	return data, nil
}

// LoginRequest is the body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned on register / login.
type AuthResponse struct {
	Token string      `json:"token"`
	User  *store.User `json:"user,omitempty"`
}

// ProfileUpdate is the body for PUT /api/users/profile. Absent fields are kept.
type ProfileUpdate struct {
	Name            *string `json:"name,omitempty"`
	Phone           *string `json:"phone,omitempty"`
	VehicleModel    *string `json:"vehicleModel,omitempty"`
	LicensePlate    *string `json:"licensePlate,omitempty"`
	VehicleCapacity *int    `json:"vehicleCapacity,omitempty"`
	VehiclePhoto    *string `json:"vehiclePhoto,omitempty"`
}

// Patch validates the update against the current record.
func (p ProfileUpdate) Patch(cur store.User) (store.UserPatch, error) {
	var patch store.UserPatch
	if p.Name != nil {
		if !validation.ValidateName(*p.Name) {
			return patch, errors.New("name must be 2-200 characters")
		}
		n := strings.TrimSpace(*p.Name)
		patch.Name = &n
	}
	if p.Phone != nil {
		if !validation.ValidatePhone(*p.Phone) {
			return patch, errors.New("invalid phone")
		}
		ph := strings.TrimSpace(*p.Phone)
		patch.Phone = &ph
	}

	touchesVehicle := p.VehicleModel != nil || p.LicensePlate != nil || p.VehicleCapacity != nil || p.VehiclePhoto != nil
	if !touchesVehicle {
		return patch, nil
	}
	if cur.Role != store.RoleDriver {
		return patch, errors.New("only drivers have vehicle details")
	}
	v := store.Vehicle{}
	if cur.Vehicle != nil {
		v = *cur.Vehicle
	}
	if p.VehicleModel != nil {
		v.Model = *p.VehicleModel
	}
	if p.LicensePlate != nil {
		v.Plate = *p.LicensePlate
	}
	if p.VehicleCapacity != nil {
		v.Capacity = *p.VehicleCapacity
	}
	if p.VehiclePhoto != nil {
		v.Photo = *p.VehiclePhoto
	}
	checked, err := vehicle(v.Model, v.Plate, v.Capacity, v.Photo)
	if err != nil {
		return patch, err
	}
	patch.Vehicle = checked
	return patch, nil
}

// BlockRequest is the body for PUT /api/admin/users/{id}/block.
type BlockRequest struct {
	Reason string `json:"reason"`
}

func vehicle(model, plate string, capacity int, photo string) (*store.Vehicle, error) {
	model, plate = strings.TrimSpace(model), strings.TrimSpace(plate)
	if model == "" || plate == "" {
		return nil, errors.New("drivers must provide vehicle model and license plate")
	}
	if !validation.ValidateSeats(capacity) {
		return nil, errors.New("vehicle capacity must be 1-16")
	}
	return &store.Vehicle{Model: model, Plate: plate, Capacity: capacity, Photo: photo}, nil
}
