package utils

import (
	"errors"
	"fmt"
	"net/mail"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// Minimal internal validator. Supports:
// - required
// - email
// - username (letters, digits, dot, underscore, 3-80 chars)
// - pwdmin (min length 6)
// - max=N (string length)
// - oneof=a b c
// - eqfield=OtherField (field equals another field)

var reUsername = regexp.MustCompile(`^[A-Za-z0-9_.]{3,80}$`)

// ValidateStruct inspects struct tags `validate:"..."` and returns the first error encountered.
func ValidateStruct(s interface{}) error {
	v := reflect.ValueOf(s)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return errors.New("ValidateStruct expects a struct or pointer to struct")
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("validate")
		if tag == "" {
			continue
		}
		name := jsonName(field)
		fv := v.Field(i)
		if fv.Kind() == reflect.Ptr {
			if fv.IsNil() {
				if strings.Contains(tag, "required") {
					return errors.New(name + " is required")
				}
				continue
			}
			fv = fv.Elem()
		}
		var sval string
		if fv.IsValid() && fv.Kind() == reflect.String {
			sval = fv.String()
		}
		for _, p := range strings.Split(tag, ",") {
			p = strings.TrimSpace(p)
			switch {
			case p == "required":
				if fv.Kind() == reflect.String && strings.TrimSpace(sval) == "" {
					return errors.New(name + " is required")
				}
				if fv.Kind() != reflect.String && fv.IsZero() {
					return errors.New(name + " is required")
				}
			case p == "email":
				if sval != "" {
					if _, err := mail.ParseAddress(sval); err != nil {
						return errors.New(name + " must be a valid email address")
					}
				}
			case p == "username":
				if sval != "" && !reUsername.MatchString(sval) {
					return errors.New(name + " may only contain letters, digits, dots and underscores (3-80 chars)")
				}
			case p == "pwdmin":
				if len(sval) < 6 {
					return errors.New(name + " must be at least 6 characters")
				}
			case strings.HasPrefix(p, "max="):
				n, _ := strconv.Atoi(strings.TrimPrefix(p, "max="))
				if n > 0 && len([]rune(sval)) > n {
					return fmt.Errorf("%s must be at most %d characters", name, n)
				}
			case strings.HasPrefix(p, "oneof="):
				if sval == "" {
					continue
				}
				allowed := strings.Fields(strings.TrimPrefix(p, "oneof="))
				ok := false
				for _, a := range allowed {
					if sval == a {
						ok = true
						break
					}
				}
				if !ok {
					return fmt.Errorf("%s must be one of: %s", name, strings.Join(allowed, ", "))
				}
			case strings.HasPrefix(p, "eqfield="):
				other := strings.TrimPrefix(p, "eqfield=")
				of := v.FieldByName(other)
				if of.IsValid() && of.Kind() == reflect.String && sval != of.String() {
					return errors.New(name + " must equal " + other)
				}
			}
		}
	}
	return nil
}

func jsonName(f reflect.StructField) string {
	if tag := f.Tag.Get("json"); tag != "" {
		if n := strings.Split(tag, ",")[0]; n != "" && n != "-" {
			return n
		}
	}
	return f.Name
}
