package indicator

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QwQ-dev/LiveStatus/internal/database"
)

type fakeSender struct {
	bodies []string
	err    error
}

func (s *fakeSender) Notify(ctx context.Context, body string) error {
	s.bodies = append(s.bodies, body)
	return s.err
}

func TestNotifier(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender)

	n.Show(Initial)
	n.Show("Reporting: Firefox")

	assert.Equal(t, []string{Initial, "Reporting: Firefox"}, sender.bodies)

	sender.err = errors.New("no notification daemon")
	assert.NotPanics(t, func() { n.Show("Connection error") })
}

func TestMemoryLastWriterWins(t *testing.T) {
	m := NewMemory()
	text, at := m.Text()
	assert.Empty(t, text)
	assert.True(t, at.IsZero())

	m.Show("Server error: 500")
	m.Show("Reporting: Firefox")

	text, at = m.Text()
	assert.Equal(t, "Reporting: Firefox", text)
	assert.False(t, at.IsZero())
}

func TestMulti(t *testing.T) {
	a, b := NewMemory(), NewMemory()
	Multi{a, nil, Log{}, b}.Show("Connection error")

	textA, _ := a.Text()
	textB, _ := b.Text()
	assert.Equal(t, "Connection error", textA)
	assert.Equal(t, "Connection error", textB)
}

func TestRecorderKeepsOneRow(t *testing.T) {
	db, err := database.Connect(database.MemoryPath)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Initialize())

	repo := database.NewRepository(db)
	r := NewRecorder(repo)
	r.Show(Initial)
	r.Show("Reporting: Firefox")

	row, err := repo.GetIndicator()
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "Reporting: Firefox", row.Message)
	assert.Equal(t, os.Getpid(), row.PID)

	var count int64
	db.Table("indicators").Count(&count)
	assert.Equal(t, int64(1), count)
}
