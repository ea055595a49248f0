package validation

import (
	"errors"
	"strings"
	"testing"

	apperrors "github.com/gocomet/parcel-pickup/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Username string  `json:"username" validate:"required,min=3,max=50"`
	Email    string  `json:"email" validate:"required,email"`
	Phone    string  `json:"phone" validate:"required,phone"`
	Reward   float64 `json:"reward" validate:"gt=0"`
}

// TestStruct_ReportsEveryField tests field-level detail with json names
func TestStruct_ReportsEveryField(t *testing.T) {
	err := Struct(signup{Username: "ab", Email: "not-an-email", Phone: "12345", Reward: 0})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "VALIDATION_FAILED", appErr.Code)

	fields := map[string]string{}
	for _, d := range appErr.Details {
		fields[d.Field] = d.Message
	}
	assert.Equal(t, "must be at least 3 characters", fields["username"])
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "must be a valid mobile phone number", fields["phone"])
	assert.Equal(t, "must be greater than 0", fields["reward"])
}

// TestStruct_PhonePattern tests the custom phone tag
func TestStruct_PhonePattern(t *testing.T) {
	tests := []struct {
		phone string
		valid bool
	}{
		{"13812345678", true},
		{"19900000000", true},
		{"12812345678", false},
		{"1381234567", false},
		{"138123456789", false},
		{"+8613812345678", false},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			err := Struct(signup{Username: "alice", Email: "a@b.cn", Phone: tt.phone, Reward: 1})
			assert.Equal(t, tt.valid, err == nil, "phone %s", tt.phone)
		})
	}
}

type secret struct {
	Password string  `json:"password" validate:"max=72,maxbytes=72"`
	Amount   float64 `json:"amount" validate:"cents"`
}

// TestStruct_ByteLengthAndCents tests the maxbytes and cents tags
func TestStruct_ByteLengthAndCents(t *testing.T) {
	tests := []struct {
		name  string
		in    secret
		field string
	}{
		{"ascii at limit", secret{Password: strings.Repeat("a", 72), Amount: 1}, ""},
		{"multibyte within rune limit", secret{Password: strings.Repeat("密", 30), Amount: 1}, "password"},
		{"two decimals", secret{Password: "x", Amount: 19.99}, ""},
		{"three decimals", secret{Password: "x", Amount: 0.004}, "amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr))
			require.Len(t, appErr.Details, 1)
			assert.Equal(t, tt.field, appErr.Details[0].Field)
		})
	}
}

// TestFromError_NonValidatorError tests wrapping of decode failures
func TestFromError_NonValidatorError(t *testing.T) {
	err := FromError(errors.New("unexpected EOF"))

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	require.Len(t, appErr.Details, 1)
	assert.Equal(t, "body", appErr.Details[0].Field)
}
