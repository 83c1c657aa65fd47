package discord

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"groovebot/internal/player"
	"groovebot/pkg/text"
)

// commandContext carries one invocation through its handler.
type commandContext struct {
	ctx       context.Context
	guildID   string
	channelID string
	userID    string
	userName  string
	args      string
}

type commandHandler func(*commandContext) error

// commands maps command names (and aliases) to handlers.
func (b *Bot) commands() map[string]commandHandler {
	return map[string]commandHandler{
		"play":       b.cmdPlay,
		"p":          b.cmdPlay,
		"search":     b.cmdSearch,
		"skip":       b.cmdSkip,
		"s":          b.cmdSkip,
		"next":       b.cmdSkip,
		"previous":   b.cmdPrevious,
		"prev":       b.cmdPrevious,
		"back":       b.cmdPrevious,
		"pause":      b.cmdPause,
		"resume":     b.cmdResume,
		"unpause":    b.cmdResume,
		"stop":       b.cmdStop,
		"leave":      b.cmdLeave,
		"disconnect": b.cmdLeave,
		"dc":         b.cmdLeave,
		"queue":      b.cmdQueue,
		"q":          b.cmdQueue,
		"nowplaying": b.cmdNowPlaying,
		"np":         b.cmdNowPlaying,
		"shuffle":    b.cmdShuffle,
		"reverse":    b.cmdReverse,
		"move":       b.cmdMove,
		"swap":       b.cmdSwap,
		"remove":     b.cmdRemove,
		"rm":         b.cmdRemove,
		"clear":      b.cmdClear,
		"dedupe":     b.cmdDedupe,
		"sort":       b.cmdSort,
		"volume":     b.cmdVolume,
		"vol":        b.cmdVolume,
		"loop":       b.cmdLoop,
		"effect":     b.cmdEffect,
		"fx":         b.cmdEffect,
		"history":    b.cmdHistory,
		"fav":        b.cmdFavorites,
		"favorites":  b.cmdFavorites,
		"247":        b.cmdStayConnected,
		"help":       b.cmdHelp,
	}
}

// cmdPlay resolves the request into a track and either starts playback or
// appends to the queue.
func (b *Bot) cmdPlay(c *commandContext) error {
	if c.args == "" {
		return errors.New("usage: play <link or search terms>")
	}

	track, err := b.requestToTrack(c)
	if err != nil {
		b.metrics.RecordSearch("error")
		return err
	}
	b.metrics.RecordSearch("ok")
	track.RequesterID = c.userID
	track.RequesterName = c.userName

	return b.playOrEnqueue(c, track)
}

// cmdSearch shows matches without starting playback.
func (b *Bot) cmdSearch(c *commandContext) error {
	if c.args == "" {
		return errors.New("usage: search <terms>")
	}

	tracks, err := b.resolver.Search(c.ctx, c.args, b.cfg.Music.SearchLimit)
	if err != nil {
		b.metrics.RecordSearch("error")
		return fmt.Errorf("search failed: %w", err)
	}
	b.metrics.RecordSearch("ok")

	b.replyEmbed(c.channelID, trackListEmbed("Search Results", tracks))
	return nil
}

func (b *Bot) cmdSkip(c *commandContext) error {
	session, err := b.activeSession(c)
	if err != nil {
		return err
	}
	if !session.Skip() {
		return errors.New("nothing is playing")
	}
	b.replyEmbed(c.channelID, infoEmbed("Skipped."))
	return nil
}

func (b *Bot) cmdPrevious(c *commandContext) error {
	session, err := b.activeSession(c)
	if err != nil {
		return err
	}

	go func() {
		if !session.Previous(context.Background()) {
			b.replyEmbed(c.channelID, errorEmbed("No previous track."))
		}
	}()
	return nil
}

func (b *Bot) cmdPause(c *commandContext) error {
	session, err := b.activeSession(c)
	if err != nil {
		return err
	}
	if !session.Pause() {
		return errors.New("nothing is playing")
	}
	b.replyEmbed(c.channelID, infoEmbed("Paused."))
	return nil
}

func (b *Bot) cmdResume(c *commandContext) error {
	session, err := b.activeSession(c)
	if err != nil {
		return err
	}
	if !session.Resume() {
		return errors.New("playback is not paused")
	}
	b.replyEmbed(c.channelID, infoEmbed("Resumed."))
	return nil
}

func (b *Bot) cmdStop(c *commandContext) error {
	session, err := b.activeSession(c)
	if err != nil {
		return err
	}
	session.Stop()
	b.replyEmbed(c.channelID, infoEmbed("Stopped and cleared the queue."))
	return nil
}

func (b *Bot) cmdLeave(c *commandContext) error {
	session, err := b.activeSession(c)
	if err != nil {
		return err
	}
	session.Disconnect()
	b.replyEmbed(c.channelID, infoEmbed("Left the voice channel."))
	return nil
}

func (b *Bot) cmdQueue(c *commandContext) error {
	session, err := b.activeSession(c)
	if err != nil {
		return err
	}

	page := 1
	if c.args != "" {
		if n, err := strconv.Atoi(c.args); err == nil {
			page = n
		}
	}
	b.replyEmbed(c.channelID, queueEmbed(session, page))
	return nil
}

func (b *Bot) cmdNowPlaying(c *commandContext) error {
	session, err := b.activeSession(c)
	if err != nil {
		return err
	}

	track, ok := session.Current()
	if !ok {
		return errors.New("nothing is playing")
	}
	b.replyEmbed(c.channelID, progressEmbed(track, session))
	return nil
}

func (b *Bot) cmdShuffle(c *commandContext) error {
	session, err := b.activeSession(c)
	if err != nil {
		return err
	}
	if !session.Queue().Shuffle() {
		return errors.New("need at least two queued tracks to shuffle")
	}
	b.replyEmbed(c.channelID, infoEmbed("Queue shuffled."))
	return nil
}

func (b *Bot) cmdReverse(c *commandContext) error {
	session, err := b.activeSession(c)
	if err != nil {
		return err
	}
	session.Queue().Reverse()
	b.replyEmbed(c.channelID, infoEmbed("Queue reversed."))
	return nil
}

func (b *Bot) cmdMove(c *commandContext) error {
	from, to, err := parseTwoIndexes(c.args)
	if err != nil {
		return errors.New("usage: move <from> <to>")
	}

	session, err := b.activeSession(c)
	if err != nil {
		return err
	}
	if !session.Queue().Move(from-1, to-1) {
		return errors.New("position out of range")
	}
	b.replyEmbed(c.channelID, infoEmbed(fmt.Sprintf("Moved track %d to position %d.", from, to)))
	return nil
}

func (b *Bot) cmdSwap(c *commandContext) error {
	i, j, err := parseTwoIndexes(c.args)
	if err != nil {
		return errors.New("usage: swap <first> <second>")
	}

	session, err := b.activeSession(c)
	if err != nil {
		return err
	}
	if !session.Queue().Swap(i-1, j-1) {
		return errors.New("position out of range")
	}
	b.replyEmbed(c.channelID, infoEmbed(fmt.Sprintf("Swapped tracks %d and %d.", i, j)))
	return nil
}

func (b *Bot) cmdRemove(c *commandContext) error {
	session, err := b.activeSession(c)
	if err != nil {
		return err
	}

	if c.args == "mine" {
		removed := session.Queue().RemoveByRequester(c.userID)
		b.replyEmbed(c.channelID, infoEmbed(fmt.Sprintf("Removed %d of your tracks.", removed)))
		return nil
	}

	index, err := strconv.Atoi(c.args)
	if err != nil {
		// Not a number, treat the arguments as a title query.
		if c.args == "" {
			return errors.New("usage: remove <position|title|mine>")
		}
		found, ok := session.Queue().Find(c.args)
		if !ok {
			return fmt.Errorf("no queued track matches %q", c.args)
		}
		index = found + 1
	}
	track, ok := session.Queue().RemoveAt(index - 1)
	if !ok {
		return errors.New("position out of range")
	}
	b.replyEmbed(c.channelID, infoEmbed(fmt.Sprintf("Removed **%s**.", track.Title)))
	return nil
}

func (b *Bot) cmdClear(c *commandContext) error {
	session, err := b.activeSession(c)
	if err != nil {
		return err
	}
	session.Queue().Clear()
	b.replyEmbed(c.channelID, infoEmbed("Queue cleared."))
	return nil
}

func (b *Bot) cmdDedupe(c *commandContext) error {
	session, err := b.activeSession(c)
	if err != nil {
		return err
	}
	removed := session.Queue().RemoveDuplicates()
	b.replyEmbed(c.channelID, infoEmbed(fmt.Sprintf("Removed %d duplicates.", removed)))
	return nil
}

func (b *Bot) cmdSort(c *commandContext) error {
	session, err := b.activeSession(c)
	if err != nil {
		return err
	}

	fields := strings.Fields(c.args)
	if len(fields) == 0 {
		return errors.New("usage: sort <duration|title> [desc]")
	}
	ascending := len(fields) < 2 || fields[1] != "desc"

	switch fields[0] {
	case "duration":
		session.Queue().SortByDuration(ascending)
	case "title":
		session.Queue().SortByTitle(ascending)
	default:
		return errors.New("usage: sort <duration|title> [desc]")
	}
	b.replyEmbed(c.channelID, infoEmbed("Queue sorted by "+fields[0]+"."))
	return nil
}

func (b *Bot) cmdVolume(c *commandContext) error {
	session, err := b.activeSession(c)
	if err != nil {
		return err
	}

	if c.args == "" {
		b.replyEmbed(c.channelID, infoEmbed(fmt.Sprintf("Volume is %d%%.", session.Volume())))
		return nil
	}

	level, err := strconv.Atoi(c.args)
	if err != nil {
		return fmt.Errorf("usage: volume <%d-%d>", b.cfg.Music.MinVolume, b.cfg.Music.MaxVolume)
	}
	applied := session.SetVolume(level)
	b.replyEmbed(c.channelID, infoEmbed(fmt.Sprintf("Volume set to %d%%.", applied)))
	return nil
}

func (b *Bot) cmdLoop(c *commandContext) error {
	session, err := b.activeSession(c)
	if err != nil {
		return err
	}

	var mode player.LoopMode
	switch c.args {
	case "":
		mode = session.ToggleLoop()
	case "track":
		mode = session.SetLoopTrack()
	case "queue":
		mode = session.SetLoopQueue()
	case "off":
		for session.Loop() != player.LoopOff {
			mode = session.ToggleLoop()
		}
	default:
		return errors.New("usage: loop [track|queue|off]")
	}
	b.replyEmbed(c.channelID, infoEmbed("Loop mode: "+mode.String()+"."))
	return nil
}

func (b *Bot) cmdEffect(c *commandContext) error {
	if c.args == "" {
		b.replyEmbed(c.channelID, effectsEmbed())
		return nil
	}

	effect, ok := player.ParseEffect(c.args)
	if !ok {
		return fmt.Errorf("unknown effect %q, see `%seffect`", c.args, b.cfg.Discord.Prefix)
	}

	session, err := b.activeSession(c)
	if err != nil {
		return err
	}
	session.SetEffect(effect)
	b.replyEmbed(c.channelID, infoEmbed(
		fmt.Sprintf("Effect set to `%s`. It applies from the next track.", effect)))
	return nil
}

func (b *Bot) cmdHistory(c *commandContext) error {
	session, err := b.activeSession(c)
	if err != nil {
		return err
	}

	history := session.History()
	// Newest first reads better in chat.
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	b.replyEmbed(c.channelID, trackListEmbed("Recently Played", history))
	return nil
}

// cmdFavorites handles fav add/remove/list/play.
func (b *Bot) cmdFavorites(c *commandContext) error {
	session := b.registry.GetOrCreate(c.guildID)
	sub, rest := splitCommand(c.args)

	switch sub {
	case "", "list":
		b.replyEmbed(c.channelID, trackListEmbed("Your Favorites", session.Favorites(c.userID)))
		return nil

	case "add":
		track, ok := session.Current()
		if !ok {
			return errors.New("nothing is playing to favorite")
		}
		if !session.AddFavorite(c.userID, track) {
			return errors.New("already in your favorites")
		}
		b.replyEmbed(c.channelID, infoEmbed(fmt.Sprintf("Added **%s** to your favorites.", track.Title)))
		return nil

	case "remove":
		index, err := strconv.Atoi(rest)
		if err != nil {
			return errors.New("usage: fav remove <position>")
		}
		favs := session.Favorites(c.userID)
		if index < 1 || index > len(favs) {
			return errors.New("position out of range")
		}
		session.RemoveFavorite(c.userID, favs[index-1])
		b.replyEmbed(c.channelID, infoEmbed(fmt.Sprintf("Removed **%s**.", favs[index-1].Title)))
		return nil

	case "play":
		favs := session.Favorites(c.userID)
		if len(favs) == 0 {
			return errors.New("you have no favorites yet")
		}
		if rest != "" {
			index, err := strconv.Atoi(rest)
			if err != nil || index < 1 || index > len(favs) {
				return errors.New("usage: fav play [position]")
			}
			favs = favs[index-1 : index]
		}
		for i := range favs {
			favs[i].RequesterID = c.userID
			favs[i].RequesterName = c.userName
		}
		if err := b.playOrEnqueue(c, favs[0]); err != nil {
			return err
		}
		if len(favs) > 1 {
			session.Queue().EnqueueAll(favs[1:])
		}
		return nil

	default:
		return errors.New("usage: fav [list|add|remove <n>|play [n]]")
	}
}

func (b *Bot) cmdStayConnected(c *commandContext) error {
	session := b.registry.GetOrCreate(c.guildID)
	stay := !session.StayConnected()
	session.SetStayConnected(stay)

	if stay {
		b.replyEmbed(c.channelID, infoEmbed("24/7 mode enabled, staying in voice."))
	} else {
		b.replyEmbed(c.channelID, infoEmbed("24/7 mode disabled, leaving voice when idle."))
	}
	return nil
}

func (b *Bot) cmdHelp(c *commandContext) error {
	prefix := b.cfg.Discord.Prefix
	b.replyEmbed(c.channelID, infoEmbed(fmt.Sprintf(
		"`%[1]splay <link|terms>` queue a track • `%[1]ssearch <terms>` list matches\n"+
			"`%[1]sskip` `%[1]sprevious` `%[1]spause` `%[1]sresume` `%[1]sstop` `%[1]sleave`\n"+
			"`%[1]squeue [page]` `%[1]snowplaying` `%[1]shistory`\n"+
			"`%[1]sshuffle` `%[1]sreverse` `%[1]smove` `%[1]sswap` `%[1]sremove` `%[1]sclear` `%[1]sdedupe` `%[1]ssort`\n"+
			"`%[1]svolume [n]` `%[1]sloop [track|queue|off]` `%[1]seffect [name]`\n"+
			"`%[1]sfav` `%[1]s247`", prefix)))
	return nil
}

// requestToTrack turns the play arguments into a concrete track: direct
// YouTube links pass through, foreign provider links become searches, and
// anything else is searched as-is.
func (b *Bot) requestToTrack(c *commandContext) (player.Track, error) {
	req := b.parser.ParseRequest(c.args)

	switch req.Type {
	case text.RequestYouTubeLink:
		return b.trackFromYouTubeURL(c.ctx, req.URLs[0])

	case text.RequestProviderLink:
		info, err := b.links.Resolve(c.ctx, req.URLs[0])
		if err != nil {
			return player.Track{}, fmt.Errorf("could not read the link: %w", err)
		}
		return b.firstSearchHit(c.ctx, info.SearchQuery())

	default:
		return b.firstSearchHit(c.ctx, req.Text)
	}
}

// trackFromYouTubeURL builds a track for a direct link, recovering metadata
// through search when possible.
func (b *Bot) trackFromYouTubeURL(ctx context.Context, rawURL string) (player.Track, error) {
	videoID, err := text.ExtractVideoID(rawURL)
	if err != nil {
		return player.Track{}, fmt.Errorf("unsupported YouTube link: %w", err)
	}

	canonical := text.WatchURL(videoID)
	if tracks, err := b.resolver.Search(ctx, videoID, b.cfg.Music.SearchLimit); err == nil {
		for _, track := range tracks {
			if track.URL == canonical {
				return track, nil
			}
		}
	}

	// Metadata lookup is best effort; resolution fills in what playback
	// needs.
	return player.Track{
		Title:     canonical,
		URL:       canonical,
		Thumbnail: text.ThumbnailURL(videoID),
	}, nil
}

func (b *Bot) firstSearchHit(ctx context.Context, query string) (player.Track, error) {
	tracks, err := b.resolver.Search(ctx, query, 1)
	if err != nil {
		return player.Track{}, fmt.Errorf("search for %q failed: %w", query, err)
	}
	if len(tracks) == 0 {
		return player.Track{}, fmt.Errorf("no results for %q", query)
	}
	return tracks[0], nil
}

// playOrEnqueue connects to the requester's voice channel and either starts
// the track or appends it behind the current one.
func (b *Bot) playOrEnqueue(c *commandContext, track player.Track) error {
	channelID, ok := b.userVoiceChannel(c.guildID, c.userID)
	if !ok {
		return errors.New("join a voice channel first")
	}

	session := b.registry.GetOrCreate(c.guildID)
	if !session.Connect(c.ctx, channelID) {
		return errors.New("could not join your voice channel")
	}

	if session.Status() != player.StatusIdle {
		if session.Queue().Len() >= b.cfg.Music.MaxQueueSize {
			return fmt.Errorf("queue is full (%d tracks)", b.cfg.Music.MaxQueueSize)
		}
		position := session.Queue().Enqueue(track)
		b.replyEmbed(c.channelID, infoEmbed(
			fmt.Sprintf("Queued **%s** at position %d.", track.Title, position)))
		return nil
	}

	go session.Play(context.Background(), track)
	return nil
}

// activeSession returns the guild's session or an error that reads well in
// chat.
func (b *Bot) activeSession(c *commandContext) (*player.Session, error) {
	session, ok := b.registry.Get(c.guildID)
	if !ok {
		return nil, errors.New("nothing has been played yet")
	}
	return session, nil
}

func parseTwoIndexes(args string) (int, int, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return 0, 0, errors.New("expected two positions")
	}
	first, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, err
	}
	second, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, err
	}
	return first, second, nil
}
