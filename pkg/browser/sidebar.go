package browser

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/entrhq/chatsweep/pkg/types"
)

// ChatSelector matches conversation links in the sidebar.
const ChatSelector = `a[href^="/c/"], a[href^="/chat/"], a[href*="/c/"]`

// dateBuckets are the sidebar headings chats are grouped under.
var dateBuckets = []string{"Today", "Yesterday", "Previous 7 days", "Previous 30 days"}

const (
	bucketAncestorDepth = 12
	bucketSiblingDepth  = 6
)

// Sidebar is the parsed content of the live view.
type Sidebar struct {
	Chats  []types.Item
	Groups []types.Group
}

// ParseSidebar extracts chats and projects from page HTML in document order.
// Chats are de-duplicated by id and projects by canonical group id; project
// links without a canonical id are dropped. Relative links resolve against origin.
func ParseSidebar(r io.Reader, origin string) (Sidebar, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Sidebar{}, fmt.Errorf("failed to parse HTML: %w", err)
	}
	base, err := url.Parse(origin)
	if err != nil {
		return Sidebar{}, fmt.Errorf("invalid origin %q: %w", origin, err)
	}

	var (
		sb         Sidebar
		seenChats  = make(map[string]bool)
		seenGroups = make(map[string]bool)
	)

	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "a" {
			return
		}
		href := attr(n, "href")
		if href == "" {
			return
		}

		if isChatHref(href) {
			abs := resolve(base, href)
			id := lastSegment(abs)
			if id == "" || seenChats[id] {
				return
			}
			seenChats[id] = true

			title := norm(textContent(n))
			if title == "" {
				title = norm(attr(n, "aria-label"))
			}
			sb.Chats = append(sb.Chats, types.Item{
				ID:     id,
				Title:  title,
				URL:    abs,
				Order:  len(sb.Chats),
				Bucket: inferDateBucket(n),
			})
			return
		}

		if strings.HasPrefix(href, "/g/") {
			raw, ok := types.ParseProjectHref(href)
			if !ok {
				return
			}
			gid, ok := types.CanonicalGroupID(raw)
			if !ok || seenGroups[gid] {
				return
			}
			seenGroups[gid] = true

			title := norm(textContent(n))
			if title == "" {
				title = types.UntitledGroup
			}
			sb.Groups = append(sb.Groups, types.Group{
				GroupID: gid,
				RawID:   raw,
				Title:   title,
				URL:     resolve(base, href),
				Order:   len(sb.Groups),
			})
		}
	})

	return sb, nil
}

func isChatHref(href string) bool {
	return strings.HasPrefix(href, "/c/") || strings.HasPrefix(href, "/chat/") || strings.Contains(href, "/c/")
}

// inferDateBucket walks up from a chat link looking for a heading sibling.
func inferDateBucket(n *html.Node) string {
	el := n
	for i := 0; i < bucketAncestorDepth && el != nil; i++ {
		parent := el.Parent
		if parent == nil || parent.Type != html.ElementNode {
			break
		}
		prev := prevElementSibling(parent)
		for j := 0; j < bucketSiblingDepth && prev != nil; j++ {
			t := norm(textContent(prev))
			for _, b := range dateBuckets {
				if t != "" && strings.HasPrefix(t, b) {
					return t
				}
			}
			prev = prevElementSibling(prev)
		}
		el = parent
	}
	return ""
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func prevElementSibling(n *html.Node) *html.Node {
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return b.String()
}

func norm(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func lastSegment(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	parts := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(parts) == 0 {
		return raw
	}
	return parts[len(parts)-1]
}
