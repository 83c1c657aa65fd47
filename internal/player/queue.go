package player

import (
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"groovebot/pkg/fuzzy"
)

// Queue is an ordered collection of pending tracks, FIFO by default. All
// operations are atomic with respect to each other; index-based operations
// validate bounds and never partially mutate.
type Queue struct {
	mu     sync.Mutex
	tracks []Track
	rng    *rand.Rand
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return NewQueueSeeded(rand.NewSource(time.Now().UnixNano()))
}

// NewQueueSeeded creates an empty queue whose shuffle draws from the given
// source. Used by tests that need deterministic permutations.
func NewQueueSeeded(src rand.Source) *Queue {
	return &Queue{
		tracks: make([]Track, 0),
		rng:    rand.New(src),
	}
}

// Enqueue appends a track and returns the new queue length.
func (q *Queue) Enqueue(track Track) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.tracks = append(q.tracks, track)
	return len(q.tracks)
}

// EnqueueFront inserts a track at the head and returns its position (always 0).
func (q *Queue) EnqueueFront(track Track) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.tracks = append([]Track{track}, q.tracks...)
	return 0
}

// EnqueueAll appends all tracks in order and returns the new queue length.
func (q *Queue) EnqueueAll(tracks []Track) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.tracks = append(q.tracks, tracks...)
	return len(q.tracks)
}

// DequeueFront removes and returns the head of the queue.
func (q *Queue) DequeueFront() (Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tracks) == 0 {
		return Track{}, false
	}
	track := q.tracks[0]
	q.tracks = q.tracks[1:]
	return track, true
}

// RemoveAt removes and returns the track at index.
func (q *Queue) RemoveAt(index int) (Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.tracks) {
		return Track{}, false
	}
	track := q.tracks[index]
	q.tracks = append(q.tracks[:index], q.tracks[index+1:]...)
	return track, true
}

// Move relocates the track at from to position to.
func (q *Queue) Move(from, to int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.tracks)
	if from < 0 || from >= n || to < 0 || to >= n {
		return false
	}
	track := q.tracks[from]
	q.tracks = append(q.tracks[:from], q.tracks[from+1:]...)
	rest := append([]Track{track}, q.tracks[to:]...)
	q.tracks = append(q.tracks[:to], rest...)
	return true
}

// Swap exchanges the tracks at i and j.
func (q *Queue) Swap(i, j int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.tracks)
	if i < 0 || i >= n || j < 0 || j >= n {
		return false
	}
	q.tracks[i], q.tracks[j] = q.tracks[j], q.tracks[i]
	return true
}

// Shuffle produces a uniformly random permutation. It requires at least two
// tracks and reports whether anything was shuffled.
func (q *Queue) Shuffle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tracks) < 2 {
		return false
	}
	q.rng.Shuffle(len(q.tracks), func(i, j int) {
		q.tracks[i], q.tracks[j] = q.tracks[j], q.tracks[i]
	})
	return true
}

// Reverse flips the queue order.
func (q *Queue) Reverse() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, j := 0, len(q.tracks)-1; i < j; i, j = i+1, j-1 {
		q.tracks[i], q.tracks[j] = q.tracks[j], q.tracks[i]
	}
}

// SortByDuration orders the queue by track duration. Live tracks sort as
// duration zero.
func (q *Queue) SortByDuration(ascending bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	sort.SliceStable(q.tracks, func(i, j int) bool {
		if ascending {
			return q.tracks[i].Duration < q.tracks[j].Duration
		}
		return q.tracks[i].Duration > q.tracks[j].Duration
	})
}

// SortByTitle orders the queue by case-insensitive title.
func (q *Queue) SortByTitle(ascending bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	sort.SliceStable(q.tracks, func(i, j int) bool {
		a := strings.ToLower(q.tracks[i].Title)
		b := strings.ToLower(q.tracks[j].Title)
		if ascending {
			return a < b
		}
		return a > b
	})
}

// RemoveDuplicates keeps the first occurrence per source URL, preserving the
// relative order of survivors, and returns the number of tracks dropped.
func (q *Queue) RemoveDuplicates() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	seen := make(map[string]struct{}, len(q.tracks))
	kept := q.tracks[:0]
	removed := 0
	for _, track := range q.tracks {
		if _, dup := seen[track.URL]; dup {
			removed++
			continue
		}
		seen[track.URL] = struct{}{}
		kept = append(kept, track)
	}
	q.tracks = kept
	return removed
}

// RemoveByRequester drops every track requested by the given user and returns
// the number removed.
func (q *Queue) RemoveByRequester(userID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.tracks[:0]
	removed := 0
	for _, track := range q.tracks {
		if track.RequesterID == userID {
			removed++
			continue
		}
		kept = append(kept, track)
	}
	q.tracks = kept
	return removed
}

// Clear drops all entries.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.tracks = q.tracks[:0]
}

// Len returns the number of queued tracks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.tracks)
}

// IsEmpty reports whether the queue holds no tracks.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// TrackAt returns the track at index without removing it.
func (q *Queue) TrackAt(index int) (Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.tracks) {
		return Track{}, false
	}
	return q.tracks[index], true
}

// Tracks returns a copy of the full queue.
func (q *Queue) Tracks() []Track {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Track, len(q.tracks))
	copy(out, q.tracks)
	return out
}

// Window returns a copy of up to limit tracks starting at start, for paged
// queue displays.
func (q *Queue) Window(start, limit int) []Track {
	q.mu.Lock()
	defer q.mu.Unlock()

	if start < 0 || start >= len(q.tracks) || limit <= 0 {
		return nil
	}
	end := start + limit
	if end > len(q.tracks) {
		end = len(q.tracks)
	}
	out := make([]Track, end-start)
	copy(out, q.tracks[start:end])
	return out
}

// findMatchThreshold is the minimum fuzzy score for Find to accept a track.
const findMatchThreshold = 0.6

// Find returns the index of the queued track best matching the query. Exact
// substring matches win; otherwise the highest fuzzy title score above the
// threshold does.
func (q *Queue) Find(query string) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	needle := strings.ToLower(query)
	for i, track := range q.tracks {
		if strings.Contains(strings.ToLower(track.Title), needle) {
			return i, true
		}
	}

	best, bestScore := 0, 0.0
	for i, track := range q.tracks {
		if score := fuzzy.TitleMatch(query, track.Title); score > bestScore {
			best, bestScore = i, score
		}
	}
	if bestScore >= findMatchThreshold {
		return best, true
	}
	return 0, false
}

// ByRequester returns copies of all tracks requested by the given user.
func (q *Queue) ByRequester(userID string) []Track {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []Track
	for _, track := range q.tracks {
		if track.RequesterID == userID {
			out = append(out, track)
		}
	}
	return out
}

// TotalDuration sums the durations of all queued tracks. Live tracks count
// as zero.
func (q *Queue) TotalDuration() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()

	var total time.Duration
	for _, track := range q.tracks {
		total += track.Duration
	}
	return total
}
