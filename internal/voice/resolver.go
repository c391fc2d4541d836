package voice

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

// ChannelDirectory lists the voice channels a speaker can be moved to.
// The discord layer implements it over guild state.
type ChannelDirectory interface {
	// VoiceChannels returns channel name -> channel ID for the guild.
	VoiceChannels() map[string]string
}

// Resolver matches a spoken destination against the channel directory using
// Jaro-Winkler similarity, tolerating the mangling speech recognition
// inflicts on channel names ("gender ball" for "general").
type Resolver struct {
	directory ChannelDirectory
	threshold float64 // 0..100
}

// NewResolver creates a resolver over directory. threshold is the minimum
// similarity score on a 0..100 scale for a match to count.
func NewResolver(directory ChannelDirectory, threshold float64) *Resolver {
	return &Resolver{directory: directory, threshold: threshold}
}

// Resolve returns the channel whose name best matches the spoken text, or
// ok=false when nothing scores at or above the threshold. Ties keep the
// first-scanned channel; at these scores the candidates are interchangeable.
func (r *Resolver) Resolve(spoken string) (channelID, channelName string, ok bool) {
	needle := normalizeSpoken(spoken)
	if needle == "" {
		return "", "", false
	}

	best := r.threshold
	for name, id := range r.directory.VoiceChannels() {
		score := matchr.JaroWinkler(needle, strings.ToLower(name), true) * 100
		if score > best || (score == best && !ok) {
			best = score
			channelID = id
			channelName = name
			ok = true
		}
	}
	return channelID, channelName, ok
}

// normalizeSpoken lowercases the text and strips punctuation, which whisper
// likes to append ("general." / "general?"), keeping letters, digits, and
// spaces.
func normalizeSpoken(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
