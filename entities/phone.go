package entities

import "github.com/nyaruka/phonenumbers"

// ValidatePhoneNumber accepts numbers in international format only.
func ValidatePhoneNumber(method, phoneNumber string) error {
	number, err := phonenumbers.Parse(phoneNumber, "")
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return NewValidationError(method, "phone_number", phoneNumber, "invalid phone number")
	}
	return nil
}
