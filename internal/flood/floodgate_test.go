package flood

import (
	"testing"
	"time"
)

func TestFloodgate_Allow_NormalUsage(t *testing.T) {
	fg := New(3) // 3 commands per minute
	defer fg.Stop()

	guildID := "guild1"
	userID := "user1"

	for i := 0; i < 3; i++ {
		if !fg.Allow(guildID, userID) {
			t.Errorf("Command %d should be allowed", i+1)
		}
	}

	if fg.Allow(guildID, userID) {
		t.Error("4th command should be blocked")
	}
}

func TestFloodgate_Allow_SlidingWindow(t *testing.T) {
	fg := New(2)
	defer fg.Stop()

	guildID := "guild1"
	userID := "user1"

	if !fg.Allow(guildID, userID) {
		t.Error("First command should be allowed")
	}
	if !fg.Allow(guildID, userID) {
		t.Error("Second command should be allowed")
	}
	if fg.Allow(guildID, userID) {
		t.Error("Third command should be blocked")
	}

	// Move timestamps back past the window to simulate time passing.
	key := guildID + ":" + userID
	fg.mutex.Lock()
	if entry, exists := fg.entries[key]; exists {
		pastTime := time.Now().Add(-61 * time.Second)
		for i := range entry.timestamps {
			entry.timestamps[i] = pastTime
		}
	}
	fg.mutex.Unlock()

	if !fg.Allow(guildID, userID) {
		t.Error("Command after window slide should be allowed")
	}
}

func TestFloodgate_Allow_PerUserPerGuild(t *testing.T) {
	fg := New(2)
	defer fg.Stop()

	// Same user in different guilds has separate limits.
	for i := 0; i < 2; i++ {
		if !fg.Allow("guild1", "user1") {
			t.Errorf("Command %d in guild1 should be allowed", i+1)
		}
		if !fg.Allow("guild2", "user1") {
			t.Errorf("Command %d in guild2 should be allowed", i+1)
		}
	}

	// Different users in the same guild have separate limits.
	for i := 0; i < 2; i++ {
		if !fg.Allow("guild1", "user2") {
			t.Errorf("Command %d from user2 should be allowed", i+1)
		}
	}

	if fg.Allow("guild1", "user1") {
		t.Error("Extra command from user1 in guild1 should be blocked")
	}
	if fg.Allow("guild2", "user1") {
		t.Error("Extra command from user1 in guild2 should be blocked")
	}
	if fg.Allow("guild1", "user2") {
		t.Error("Extra command from user2 in guild1 should be blocked")
	}
}

func TestFloodgate_BlockedCommandDoesNotCount(t *testing.T) {
	fg := New(1)
	defer fg.Stop()

	if !fg.Allow("guild1", "user1") {
		t.Error("First command should be allowed")
	}

	// Hammering while blocked must not extend the block.
	for i := 0; i < 5; i++ {
		if fg.Allow("guild1", "user1") {
			t.Error("Command over the limit should be blocked")
		}
	}

	key := "guild1:user1"
	fg.mutex.Lock()
	entry := fg.entries[key]
	count := len(entry.timestamps)
	fg.mutex.Unlock()

	if count != 1 {
		t.Errorf("Blocked commands should not be recorded, got %d timestamps", count)
	}
}

func TestFloodgate_GetStats(t *testing.T) {
	fg := New(5)
	defer fg.Stop()

	fg.Allow("guild1", "user1")
	fg.Allow("guild1", "user2")

	stats := fg.GetStats()
	if stats.ActiveUsers != 2 {
		t.Errorf("ActiveUsers should be 2, got %d", stats.ActiveUsers)
	}
	if stats.LimitPerMinute != 5 {
		t.Errorf("LimitPerMinute should be 5, got %d", stats.LimitPerMinute)
	}
	if stats.WindowSeconds != 60 {
		t.Errorf("WindowSeconds should be 60, got %d", stats.WindowSeconds)
	}
}

func TestFloodgate_Cleanup(t *testing.T) {
	fg := New(5)
	defer fg.Stop()

	fg.Allow("guild1", "user1")

	fg.mutex.Lock()
	fg.entries["guild1:user1"].lastSeen = time.Now().Add(-idleTimeout - time.Minute)
	fg.mutex.Unlock()

	fg.performCleanup()

	fg.mutex.RLock()
	_, exists := fg.entries["guild1:user1"]
	fg.mutex.RUnlock()

	if exists {
		t.Error("Idle entry should have been cleaned up")
	}
}
