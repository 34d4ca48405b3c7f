// Package validation builds the request validator shared by services.
package validation

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/school-ops-api/internal/models"
	"github.com/noah-isme/school-ops-api/internal/scheduling"
)

// Custom tags understood by New.
const (
	TagSessionStatus    = "session_status"
	TagSessionType      = "session_type"
	TagAttendanceStatus = "attendance_status"
	TagWeekday          = "weekday"
	TagHHMM             = "hhmm"
	TagMonth            = "month"
)

// New returns a validator reporting json field names and knowing the domain tags.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	_ = v.RegisterValidation(TagSessionStatus, func(fl validator.FieldLevel) bool {
		return models.SessionStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation(TagSessionType, func(fl validator.FieldLevel) bool {
		return models.SessionType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation(TagAttendanceStatus, func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation(TagWeekday, func(fl validator.FieldLevel) bool {
		return scheduling.IsWeekday(fl.Field().String())
	})
	_ = v.RegisterValidation(TagHHMM, validHHMM)
	_ = v.RegisterValidation(TagMonth, func(fl validator.FieldLevel) bool {
		_, err := scheduling.ParseMonth(fl.Field().String())
		return err == nil
	})
	return v
}

func validHHMM(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if len(raw) != 5 {
		return false
	}
	_, err := time.Parse("15:04", raw)
	return err == nil
}
