package validation

import (
	"regexp"
	"strings"
	"time"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+?[0-9]\d{1,14}$`)
	clockRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

func ValidateEmail(email string) bool {
	email = strings.TrimSpace(email)
	return email != "" && emailRegex.MatchString(email) && len(email) <= 200
}

func ValidatePhone(phone string) bool {
	phone = strings.TrimSpace(phone)
	return phone != "" && phoneRegex.MatchString(phone) && len(phone) <= 50
}

func ValidateName(name string) bool {
	name = strings.TrimSpace(name)
	return len(name) >= 2 && len(name) <= 200
}

func ValidatePassword(password string) bool {
	return len(password) >= 6 && len(password) <= 100
}

// ValidatePlace accepts a non-empty route endpoint.
func ValidatePlace(place string) bool {
	place = strings.TrimSpace(place)
	return place != "" && len(place) <= 200
}

// ValidateDate accepts YYYY-MM-DD.
func ValidateDate(date string) bool {
	_, err := time.Parse(time.DateOnly, date)
	return err == nil
}

// ValidateClock accepts 24h HH:MM.
func ValidateClock(clock string) bool {
	return clockRegex.MatchString(clock)
}

func ValidateSeats(seats int) bool {
	return seats >= 1 && seats <= 16
}

func ValidatePrice(price float64) bool {
	return price >= 0 && price <= 1_000_000
}
