package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		formData map[string]string
		fields   []string
		want     string
	}{
		{"exact Name field", map[string]string{"Name": "Kai", "Phone": "555"}, []string{"Name", "Phone"}, "Kai"},
		{"name-like field", map[string]string{"Full Name": "Ana Lee"}, []string{"Email", "Full Name"}, "Ana Lee"},
		{"first name-like field wins", map[string]string{"First name": "Bo", "Last name": "Chen"}, []string{"First name", "Last name"}, "Bo"},
		{"empty name falls through", map[string]string{"Name": "", "Nickname": "Zed"}, []string{"Name", "Nickname"}, "Zed"},
		{"no name field", map[string]string{"Phone": "555"}, []string{"Phone"}, "User"},
		{"nil form data", nil, nil, "User"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Attendee{FormData: tt.formData}
			assert.Equal(t, tt.want, a.DisplayName(tt.fields))
		})
	}
}
