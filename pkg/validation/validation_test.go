package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type assessInput struct {
	UserID    string `json:"user_id" validate:"required,record_id"`
	IPAddress string `json:"ip_address" validate:"ip_or_unknown"`
	Email     string `json:"email" validate:"omitempty,email"`
}

func TestValidateStruct_Valid(t *testing.T) {
	tests := []assessInput{
		{UserID: "42", IPAddress: "8.8.8.8"},
		{UserID: "3f2504e0-4f89-11d3-9a0c-0305e82c3301", IPAddress: "2001:db8::1"},
		{UserID: "7", IPAddress: "unknown", Email: "a@example.com"},
		{UserID: "7"},
	}
	for _, in := range tests {
		assert.NoError(t, ValidateStruct(&in), "%+v", in)
	}
}

func TestValidateStruct_FieldErrorsUseJSONNames(t *testing.T) {
	err := ValidateStruct(&assessInput{UserID: "-3", IPAddress: "999.1.1.1", Email: "nope"})
	require.Error(t, err)

	verr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.True(t, verr.HasErrors())

	msg, ok := verr.GetFieldError("user_id")
	require.True(t, ok)
	assert.Equal(t, "user_id must be a positive integer or UUID", msg)

	msg, ok = verr.GetFieldError("ip_address")
	require.True(t, ok)
	assert.Equal(t, `ip_address must be a valid IPv4 or IPv6 address or "unknown"`, msg)

	msg, ok = verr.GetFieldError("email")
	require.True(t, ok)
	assert.Equal(t, "email must be a valid email address", msg)
}

func TestValidateStruct_Required(t *testing.T) {
	err := ValidateStruct(&assessInput{})
	require.Error(t, err)
	msg, ok := err.(*ValidationError).GetFieldError("user_id")
	require.True(t, ok)
	assert.Equal(t, "user_id is required", msg)
}

func TestIsRecordID(t *testing.T) {
	assert.True(t, IsRecordID("1"))
	assert.True(t, IsRecordID("3f2504e0-4f89-11d3-9a0c-0305e82c3301"))
	assert.False(t, IsRecordID("0"))
	assert.False(t, IsRecordID("-1"))
	assert.False(t, IsRecordID("abc"))
	assert.False(t, IsRecordID(""))
	assert.False(t, IsRecordID(" 99 "))
	assert.False(t, IsRecordID("+5"))
	assert.False(t, IsRecordID("007"))
	assert.False(t, IsRecordID("3F2504E0-4F89-11D3-9A0C-0305E82C3301"))
	assert.False(t, IsRecordID("{3f2504e0-4f89-11d3-9a0c-0305e82c3301}"))
}

func TestValidationError_AddError(t *testing.T) {
	v := &ValidationError{}
	assert.False(t, v.HasErrors())
	v.AddError("transaction_id", "transaction_id is required")
	assert.True(t, v.HasErrors())
	assert.Equal(t, "transaction_id: transaction_id is required", v.Error())
}

func TestValidationError_ErrorIsSortedByField(t *testing.T) {
	v := &ValidationError{}
	v.AddError("user_id", "bad user")
	v.AddError("email", "bad email")
	v.AddError("ip_address", "bad ip")
	assert.Equal(t, "email: bad email; ip_address: bad ip; user_id: bad user", v.Error())
}
