package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceAnnouncedOncePerRoom(t *testing.T) {
	f := newFixture(LowCard{}, testConfig())

	f.cmd("r1", "!help", "alice")
	f.cmd("r1", "!status", "bob")
	f.cmd("r1", "!bot", "carol")

	assert.Equal(t, 1, f.chat.CountContaining("is in the room"))

	// A second room gets its own announcement.
	f.cmd("r2", "!help", "alice")
	assert.Equal(t, 2, f.chat.CountContaining("is in the room"))
}

func TestNonCommandsIgnored(t *testing.T) {
	f := newFixture(LowCard{}, testConfig())

	f.cmd("r1", "hello everyone", "alice")
	f.cmd("r1", "!unknown", "alice")
	f.cmd("r1", "", "alice")
	f.cmd("r1", "   ", "alice")
	f.cmd("r1", "/bot", "alice")
	f.cmd("r1", "/bot on", "alice")

	assert.Empty(t, f.chat.Events())
	assert.False(t, f.e.store.HasPresence("r1"))
}

func TestCommandParsingToleratesWhitespace(t *testing.T) {
	f := newFixture(LowCard{}, testConfig())

	f.cmd("r1", "  !start   100  ", "alice")

	st, ok := f.e.store.Get("r1")
	require.True(t, ok)
	st.mu.Lock()
	assert.Equal(t, PhaseJoining, st.Phase)
	assert.Equal(t, int64(100), st.BetAmount)
	st.mu.Unlock()
}

func TestJoinWithoutGame(t *testing.T) {
	f := newFixture(LowCard{}, testConfig())

	f.cmd("r1", "!j", "alice")

	assert.True(t, f.chat.Contains("No game to join"))
	assert.Equal(t, int64(startBalance), f.coins.Balance("alice"))
	_, ok := f.e.store.Get("r1")
	assert.False(t, ok)
}

func TestJoinAfterWindowClosedRejected(t *testing.T) {
	f := newFixture(LowCard{}, testConfig())

	f.cmd("r1", "!start 100", "alice")
	f.cmd("r1", "!j", "alice")
	f.cmd("r1", "!j", "bob")
	waitFor(t, func() bool { return f.phase("r1") == PhaseRoundActive })

	f.cmd("r1", "!j", "carol")

	assert.True(t, f.chat.Contains("already started"))
	assert.Equal(t, int64(startBalance), f.coins.Balance("carol"))
	assert.Equal(t, 2, f.activeCount("r1"))
}

func TestDrawOutsideRound(t *testing.T) {
	f := newFixture(LowCard{}, testConfig())

	f.cmd("r1", "!d", "alice")
	assert.True(t, f.chat.Contains("No game running"))

	f.cmd("r1", "!start 100", "alice")
	f.cmd("r1", "!j", "alice")
	f.cmd("r1", "!d", "alice")
	assert.True(t, f.chat.Contains("not drawing time"))
}

func TestDrawByNonParticipantRejected(t *testing.T) {
	f := newFixture(LowCard{}, testConfig())

	f.cmd("r1", "!start 100", "alice")
	f.cmd("r1", "!j", "alice")
	f.cmd("r1", "!j", "bob")
	waitFor(t, func() bool { return f.phase("r1") == PhaseRoundActive })

	f.cmd("r1", "!d", "mallory")

	assert.True(t, f.chat.Contains("not in this round"))
	assert.Equal(t, 0, f.chat.CountContaining("mallory draws"))
}

func TestLeaveMidRoundRejected(t *testing.T) {
	f := newFixture(LowCard{}, testConfig())

	f.cmd("r1", "!start 100", "alice")
	f.cmd("r1", "!j", "alice")
	f.cmd("r1", "!j", "bob")
	waitFor(t, func() bool { return f.phase("r1") == PhaseRoundActive })

	f.cmd("r1", "!leave", "alice")

	assert.True(t, f.chat.Contains("only leave before the game starts"))
	assert.Equal(t, 2, f.activeCount("r1"))
	assert.Equal(t, int64(startBalance-100), f.coins.Balance("alice"))
}

func TestStatusThroughoutLifecycle(t *testing.T) {
	f := newFixture(LowCard{}, testConfig())

	f.cmd("r1", "!status", "alice")
	assert.True(t, f.chat.Contains("No game in this room"))

	f.cmd("r1", "!start 100", "alice")
	f.cmd("r1", "!j", "alice")
	f.cmd("r1", "!j", "bob")
	f.cmd("r1", "!status", "carol")
	assert.True(t, f.chat.Contains("2 in so far"))

	waitFor(t, func() bool { return f.phase("r1") == PhaseRoundActive })
	f.cmd("r1", "!status", "carol")
	assert.True(t, f.chat.Contains("Round 1 of 1"))
	assert.True(t, f.chat.Contains("200 coins in the pot"))
}

func TestHelpListsCommands(t *testing.T) {
	f := newFixture(LowCard{}, testConfig())

	f.cmd("r1", "!help", "alice")

	for _, cmd := range []string{"!start", "!j", "!d", "!leave", "!status", "/bot off"} {
		assert.True(t, f.chat.Contains(cmd), "help should mention %s", cmd)
	}
}

func TestBotOffCancelsGameAndRefunds(t *testing.T) {
	f := newFixture(LowCard{}, testConfig())

	f.cmd("r1", "!start 100", "alice")
	f.cmd("r1", "!j", "alice")
	f.cmd("r1", "!j", "bob")
	waitFor(t, func() bool { return f.phase("r1") == PhaseRoundActive })

	f.cmd("r1", "/bot off", "alice")

	_, ok := f.e.store.Get("r1")
	assert.False(t, ok)
	assert.Equal(t, int64(startBalance), f.coins.Balance("alice"))
	assert.Equal(t, int64(startBalance), f.coins.Balance("bob"))
	assert.False(t, f.e.store.HasPresence("r1"))
	assert.True(t, f.chat.Contains("has left the room"))
}

func TestBotOffWhenIdleIsQuiet(t *testing.T) {
	f := newFixture(LowCard{}, testConfig())

	// Never announced, nothing running: no farewell either.
	f.cmd("r1", "/bot off", "alice")

	assert.Empty(t, f.chat.Events())
}

func TestBotReturnsAfterBotOff(t *testing.T) {
	f := newFixture(LowCard{}, testConfig())

	f.cmd("r1", "!help", "alice")
	f.cmd("r1", "/bot off", "alice")
	f.chat.Reset()

	// The next recognized command re-announces presence.
	f.cmd("r1", "!start 100", "alice")
	assert.Equal(t, 1, f.chat.CountContaining("is in the room"))
	assert.Equal(t, PhaseJoining, f.phase("r1"))
}

func TestRoomsAreIndependent(t *testing.T) {
	f := newFixture(LowCard{}, testConfig())

	f.cmd("r1", "!start 100", "alice")
	f.cmd("r2", "!start 500", "alice")

	st1, ok := f.e.store.Get("r1")
	require.True(t, ok)
	st2, ok := f.e.store.Get("r2")
	require.True(t, ok)

	st1.mu.Lock()
	assert.Equal(t, int64(100), st1.BetAmount)
	st1.mu.Unlock()
	st2.mu.Lock()
	assert.Equal(t, int64(500), st2.BetAmount)
	st2.mu.Unlock()

	// Tearing down one room leaves the other untouched.
	f.cmd("r1", "/bot off", "alice")
	_, ok = f.e.store.Get("r1")
	assert.False(t, ok)
	assert.Equal(t, PhaseJoining, f.phase("r2"))
}

func TestShutdownRefundsAllRooms(t *testing.T) {
	f := newFixture(LowCard{}, testConfig())

	f.cmd("r1", "!start 100", "alice")
	f.cmd("r1", "!j", "alice")
	f.cmd("r1", "!j", "bob")
	f.cmd("r2", "!start 200", "carol")
	f.cmd("r2", "!j", "carol")

	f.e.Shutdown()

	assert.Equal(t, 0, f.e.store.Len())
	assert.Equal(t, int64(startBalance), f.coins.Balance("alice"))
	assert.Equal(t, int64(startBalance), f.coins.Balance("bob"))
	assert.Equal(t, int64(startBalance), f.coins.Balance("carol"))

	// No stray timer fires after shutdown.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, f.e.store.Len())
}
