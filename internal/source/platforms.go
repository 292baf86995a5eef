package source

import (
	"net/url"
	"sort"
	"strings"
)

// Platform is a site whose pages are downloaded through yt-dlp.
type Platform struct {
	Name  string
	Hosts []string
}

var platforms = []Platform{
	{Name: "YouTube", Hosts: []string{"youtube.com", "youtu.be", "music.youtube.com"}},
	{Name: "Vimeo", Hosts: []string{"vimeo.com"}},
	{Name: "SoundCloud", Hosts: []string{"soundcloud.com"}},
	{Name: "Twitch", Hosts: []string{"twitch.tv"}},
	{Name: "X (Twitter)", Hosts: []string{"twitter.com", "x.com"}},
	{Name: "TikTok", Hosts: []string{"tiktok.com"}},
	{Name: "Facebook", Hosts: []string{"facebook.com", "fb.watch"}},
	{Name: "Instagram", Hosts: []string{"instagram.com"}},
	{Name: "Dailymotion", Hosts: []string{"dailymotion.com"}},
	{Name: "Bandcamp", Hosts: []string{"bandcamp.com"}},
	{Name: "Mixcloud", Hosts: []string{"mixcloud.com"}},
	{Name: "Reddit", Hosts: []string{"reddit.com", "v.redd.it"}},
	{Name: "Bilibili", Hosts: []string{"bilibili.com"}},
	{Name: "Rumble", Hosts: []string{"rumble.com"}},
	{Name: "Apple Podcasts", Hosts: []string{"podcasts.apple.com"}},
}

// Platforms returns the supported platforms sorted by name.
func Platforms() []Platform {
	out := make([]Platform, len(platforms))
	for i, p := range platforms {
		out[i] = Platform{Name: p.Name, Hosts: append([]string(nil), p.Hosts...)}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// MatchPlatform returns the platform serving u, matching the host and any of
// its subdomains.
func MatchPlatform(u *url.URL) (Platform, bool) {
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, p := range platforms {
		for _, candidate := range p.Hosts {
			if host == candidate || strings.HasSuffix(host, "."+candidate) {
				return p, true
			}
		}
	}
	return Platform{}, false
}
