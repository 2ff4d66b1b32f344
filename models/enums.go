package models

import (
	"regexp"

	"github.com/go-playground/validator"

	"fitpickapi/matching"
)

type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
)

type Subscription string

const (
	Free  Subscription = "free"
	Trial Subscription = "trial"
	Pro   Subscription = "pro"
)

var (
	platformPattern     = regexp.MustCompile(`^(ios|android|web)$`)
	rolePattern         = regexp.MustCompile(`^(outerwear|top|bottom|footwear|accessory)$`)
	subscriptionPattern = regexp.MustCompile(`^(free|trial|pro)$`)
)

func ScanPlatform(value string) Platform {
	return Platform(value)
}

func ValidatePlatform(fl validator.FieldLevel) bool {
	return platformPattern.MatchString(fl.Field().String())
}

func ValidatePlatformRaw(value string) bool {
	return platformPattern.MatchString(value)
}

// ValidateRole accepts only canonical role values; creation requests must
// pick an exact slot, synonyms are for classifier output.
func ValidateRole(fl validator.FieldLevel) bool {
	return rolePattern.MatchString(fl.Field().String())
}

// ValidateOccasion is looser: "work" or "night out" are fine, the
// controller resolves them through the same synonym table.
func ValidateOccasion(fl validator.FieldLevel) bool {
	_, ok := matching.ParseOccasion(fl.Field().String())
	return ok
}

func ValidateSubscription(fl validator.FieldLevel) bool {
	return subscriptionPattern.MatchString(fl.Field().String())
}
