// Package normalize maps a located Instagram user record onto the canonical
// profile.Profile.
//
// Field names have drifted across Instagram's page-state schemas, so every
// canonical field has an ordered list of known source paths. The first path
// holding a usable value wins; otherwise the field keeps its zero value.
// Normalization never fails.
package normalize

import (
	"github.com/codeGROOVE-dev/instaprobe/pkg/jsontree"
	"github.com/codeGROOVE-dev/instaprobe/pkg/profile"
)

// Post cap bounds.
const (
	DefaultMaxPosts = 12
	MinMaxPosts     = 1
	MaxMaxPosts     = 50
)

// ClampMaxPosts bounds a user-supplied post cap to [MinMaxPosts, MaxMaxPosts].
// Zero means "not set" and yields DefaultMaxPosts.
func ClampMaxPosts(n int) int {
	switch {
	case n == 0:
		return DefaultMaxPosts
	case n < MinMaxPosts:
		return MinMaxPosts
	case n > MaxMaxPosts:
		return MaxMaxPosts
	default:
		return n
	}
}

// Options controls normalization.
type Options struct {
	// MaxPosts is the number of post edges consumed. Zero means DefaultMaxPosts.
	MaxPosts int
}

// Profile field sources, in priority order.
var (
	usernamePaths   = []Path{{"username"}}
	fullNamePaths   = []Path{{"full_name"}, {"fullName"}}
	bioPaths        = []Path{{"biography"}, {"biography_text"}, {"biog"}}
	followersPaths  = []Path{{"edge_followed_by", "count"}, {"edge_followed_by_count"}, {"followers"}}
	followingPaths  = []Path{{"edge_follow", "count"}, {"edge_follow_count"}, {"following"}}
	postCountPaths  = []Path{{"edge_owner_to_timeline_media", "count"}, {"edge_owner_to_timeline_media_count"}, {"media_count"}}
	profilePicPaths = []Path{{"profile_pic_url_hd"}, {"profile_pic_url"}, {"profilePicture"}}
	externalPaths   = []Path{{"external_url"}, {"externalWebsite"}}
	verifiedPaths   = []Path{{"is_verified"}}
	privatePaths    = []Path{{"is_private"}}

	// Post collections: current timeline edges, then the legacy media list.
	edgesPaths = []Path{{"edge_owner_to_timeline_media", "edges"}, {"media", "nodes"}}
)

// Post field sources, in priority order.
var (
	imageURLPaths  = []Path{{"display_url"}, {"display_src"}, {"thumbnail_src"}}
	shortcodePaths = []Path{{"shortcode"}, {"code"}}
	videoPaths     = []Path{{"is_video"}}
)

// Normalize builds a Profile from a user record. A nil record yields a
// zero-valued Profile with an empty post list.
func Normalize(user *jsontree.Node, opts Options) *profile.Profile {
	p := &profile.Profile{RecentPosts: []*profile.Post{}}

	p.Username, _ = firstString(user, usernamePaths...)
	p.FullName, _ = firstString(user, fullNamePaths...)
	p.Bio, _ = firstString(user, bioPaths...)
	p.Followers, _ = firstCount(user, followersPaths...)
	p.Following, _ = firstCount(user, followingPaths...)
	p.Posts, _ = firstCount(user, postCountPaths...)
	p.ProfilePicURL, _ = firstString(user, profilePicPaths...)
	p.ExternalURL, _ = firstString(user, externalPaths...)
	p.IsVerified = firstTrue(user, verifiedPaths...)
	p.IsPrivate = firstTrue(user, privatePaths...)

	limit := ClampMaxPosts(opts.MaxPosts)
	for _, edge := range postEdges(user) {
		if len(p.RecentPosts) >= limit {
			break
		}
		p.RecentPosts = append(p.RecentPosts, normalizePost(edge))
	}
	return p
}

// postEdges returns the first non-empty post collection.
func postEdges(user *jsontree.Node) []*jsontree.Node {
	for _, path := range edgesPaths {
		if edges := path.lookup(user).Elements(); len(edges) > 0 {
			return edges
		}
	}
	return nil
}

// normalizePost converts one edge. Timeline edges wrap the media in "node";
// legacy media entries are the node itself.
func normalizePost(edge *jsontree.Node) *profile.Post {
	node := edge.Get("node")
	if !node.IsObject() {
		node = edge
	}
	if !node.IsObject() {
		node = nil
	}

	post := &profile.Post{
		ImageURL: imageURL(node),
		Caption:  caption(node),
		Type:     profile.MediaImage,
	}
	post.Shortcode, _ = firstString(node, shortcodePaths...)
	if firstTrue(node, videoPaths...) {
		post.Type = profile.MediaVideo
	}
	return post
}

func imageURL(node *jsontree.Node) *string {
	if s, ok := firstString(node, imageURLPaths...); ok {
		return &s
	}
	if s, ok := node.At("thumbnail_resources", -1, "src").Str(); ok && s != "" {
		return &s
	}
	return nil
}

// caption reads edge_media_to_caption.edges[0].node.text, falling back to a
// flat caption string.
func caption(node *jsontree.Node) string {
	if s, ok := node.At("edge_media_to_caption", "edges", 0, "node", "text").Str(); ok {
		return s
	}
	if s, ok := node.Get("caption").Str(); ok {
		return s
	}
	if s, ok := node.At("caption", "text").Str(); ok {
		return s
	}
	return ""
}
