package cars

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func intPtr(i int) *int { return &i }

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		car  Car
		want string
	}{
		{"full", Car{Year: intPtr(2020), Make: "Toyota", Model: "Camry", LicensePlate: "AB 123"}, "2020 Toyota Camry"},
		{"no year", Car{Make: "BMW", Model: "X5", LicensePlate: "CD 456"}, "BMW X5"},
		{"make only", Car{Make: "Lada", LicensePlate: "EF 789"}, "Lada"},
		{"plate fallback", Car{LicensePlate: "GH 000"}, "Vehicle GH 000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.car.DisplayName())
		})
	}
}

func TestNormalizePlate(t *testing.T) {
	assert.Equal(t, "AB 123 CD", NormalizePlate("  ab  123   cd "))
	assert.Equal(t, "XYZ999", NormalizePlate("xyz999"))
	assert.Equal(t, "", NormalizePlate("   "))
}

func TestValidateYear(t *testing.T) {
	assert.NoError(t, ValidateYear(1990))
	assert.NoError(t, ValidateYear(time.Now().Year()+1))
	assert.Error(t, ValidateYear(time.Now().Year()+2))
	assert.Error(t, ValidateYear(1899))
}

func TestCarValidate(t *testing.T) {
	assert.Error(t, (&Car{}).Validate())
	assert.Error(t, (&Car{LicensePlate: "AB 123", Mileage: -1}).Validate())
	assert.Error(t, (&Car{LicensePlate: "AB 123", Year: intPtr(1500)}).Validate())
	assert.NoError(t, (&Car{LicensePlate: "AB 123", Year: intPtr(2018)}).Validate())
}
