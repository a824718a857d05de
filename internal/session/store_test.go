package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exam-bridge/internal/directory"
)

func testSession(user string) Session {
	return Session{
		School:            directory.School{Server: "x.com", DisplayName: "X School", LoginName: "x"},
		Username:          user,
		UpstreamSessionID: "abc123",
		UpstreamSchoolTag: "12345",
		CreatedAt:         time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC),
	}
}

func TestPutGetDelete(t *testing.T) {
	s := NewMemoryStore()

	_, ok := s.Get("missing")
	require.False(t, ok)

	s.Put("tok", testSession("alice"))
	got, ok := s.Get("tok")
	require.True(t, ok)
	require.Equal(t, "alice", got.Username)
	require.Equal(t, 1, s.Len())

	s.Delete("tok")
	_, ok = s.Get("tok")
	require.False(t, ok)
	require.Equal(t, 0, s.Len())
}

func TestDeleteMissingIsNoop(t *testing.T) {
	s := NewMemoryStore()
	s.Put("keep", testSession("bob"))

	s.Delete("never-issued")
	s.Delete("never-issued")

	require.Equal(t, 1, s.Len())
	_, ok := s.Get("keep")
	require.True(t, ok)
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	s.Put("tok", testSession("alice"))

	got, _ := s.Get("tok")
	got.Username = "mallory"

	again, _ := s.Get("tok")
	require.Equal(t, "alice", again.Username)
}

func TestConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup

	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token := fmt.Sprintf("tok-%d", i)
			s.Put(token, testSession(token))
			got, ok := s.Get(token)
			if ok {
				assert.Equal(t, token, got.Username)
			}
			if i%2 == 0 {
				s.Delete(token)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 32, s.Len())
}

func TestCredential(t *testing.T) {
	require.Equal(t, "JSESSIONID=abc123; schoolname=12345", testSession("alice").Credential())
}

func TestStringHidesSecrets(t *testing.T) {
	out := testSession("alice").String()
	require.Contains(t, out, "alice")
	require.NotContains(t, out, "abc123")
	require.NotContains(t, out, "12345")
}
