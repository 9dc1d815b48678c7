package notification

import (
	"sync"
	"testing"
	"time"

	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/codeseek/internal/conf"
	"github.com/tphakala/codeseek/internal/errors"
)

type fakeSender struct {
	mu       sync.Mutex
	messages []string
	titles   []string
	err      error
}

func (f *fakeSender) Send(message string, params *stypes.Params) []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	if params != nil {
		title, _ := params.Title()
		f.titles = append(f.titles, title)
	}
	return []error{f.err}
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func TestAlertCooldown(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	a := NewWithSender(sender, time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	assert.True(t, a.Alert(KindStoreUnavailable, "down", "store down"))
	assert.False(t, a.Alert(KindStoreUnavailable, "down", "store down"))
	assert.True(t, a.Alert(KindStartup, "", "started"), "kinds have separate cooldowns")

	now = now.Add(time.Minute)
	assert.True(t, a.Alert(KindStoreUnavailable, "down", "store down"))
	assert.Equal(t, 3, sender.count())
	assert.Equal(t, "down", sender.titles[0])
}

func TestAlertScrubsMessage(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	a := NewWithSender(sender, time.Minute)

	a.Alert(KindStoreUnavailable, "", "dial root:hunter2@tcp(db:3306)/catalog failed")
	require.Len(t, sender.messages, 1)
	assert.NotContains(t, sender.messages[0], "hunter2")
}

func TestAlertSendFailure(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{err: errors.NewStd("service unavailable")}
	a := NewWithSender(sender, time.Minute)
	assert.False(t, a.Alert(KindStartup, "", "hello"))
}

func TestStoreUnavailableRunsInBackground(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	a := NewWithSender(sender, time.Minute)

	for range 5 {
		a.StoreUnavailable(errors.NewStd("connection refused"))
	}
	a.Close()

	assert.Equal(t, 1, sender.count())
	assert.Contains(t, sender.messages[0], "connection refused")
}

func TestDisabledAlerter(t *testing.T) {
	t.Parallel()

	a, err := New(&conf.AlertSettings{})
	require.NoError(t, err)
	assert.False(t, a.Enabled())
	assert.False(t, a.Alert(KindStartup, "", "hello"))
	a.StoreUnavailable(errors.NewStd("x"))
	a.Close()

	var nilAlerter *Alerter
	assert.False(t, nilAlerter.Enabled())
	nilAlerter.Close()
}

func TestNewFromSettings(t *testing.T) {
	t.Parallel()

	a, err := New(&conf.AlertSettings{URLs: []string{"logger://"}, Timeout: time.Second})
	require.NoError(t, err)
	assert.True(t, a.Enabled())

	_, err = New(&conf.AlertSettings{URLs: []string{"nosuchservice://token@host"}})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
