package exams

import (
	"testing"

	"github.com/stretchr/testify/require"

	"exam-bridge/pkg"
)

func str(s string) *string { return &s }

func exam(name, subject string) Exam {
	return Exam{
		Name:      str(name),
		Subject:   str(subject),
		Date:      pkg.DecodeDate(20240315),
		StartTime: pkg.DecodeTime(800),
		EndTime:   pkg.DecodeTime(950),
	}
}

func TestEqualIgnoresMetadata(t *testing.T) {
	a := exam("Mathe SA1", "M")
	b := exam("Mathe SA1", "Mathematik")
	b.Type = str("Test")
	b.Description = str("changed")

	require.True(t, a.Equal(b))
	require.Equal(t, a.Key(), b.Key())
}

func TestEqualUsesIdentityFields(t *testing.T) {
	a := exam("Mathe SA1", "M")

	other := exam("Mathe SA2", "M")
	require.False(t, a.Equal(other))

	moved := exam("Mathe SA1", "M")
	moved.Date = pkg.DecodeDate(20240316)
	require.False(t, a.Equal(moved))

	later := exam("Mathe SA1", "M")
	later.EndTime = pkg.DecodeTime(1000)
	require.False(t, a.Equal(later))

	unnamed := exam("", "M")
	unnamed.Name = nil
	require.False(t, unnamed.Equal(exam("", "M")))
	require.True(t, unnamed.Equal(unnamed))
}
