package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/entrhq/chatsweep/pkg/types"
)

type mutateRequest struct {
	IsArchived *bool `json:"is_archived,omitempty"`
	IsVisible  *bool `json:"is_visible,omitempty"`
}

func payloadFor(action types.Action) (mutateRequest, error) {
	t, f := true, false
	switch action {
	case types.ActionArchive:
		return mutateRequest{IsArchived: &t}, nil
	case types.ActionUnarchive:
		return mutateRequest{IsArchived: &f}, nil
	case types.ActionDelete:
		return mutateRequest{IsVisible: &f}, nil
	case types.ActionUndelete:
		return mutateRequest{IsVisible: &t}, nil
	}
	return mutateRequest{}, fmt.Errorf("unknown action: %s", action)
}

type groupPageResponse struct {
	Items  []groupItem `json:"items"`
	Cursor flexString  `json:"cursor"`
}

type groupItem struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	UpdateTime flexTime `json:"update_time"`
}

func (r groupPageResponse) toPage() types.GroupPage {
	page := types.GroupPage{
		Items:      make([]types.Item, 0, len(r.Items)),
		NextCursor: string(r.Cursor),
	}
	for _, it := range r.Items {
		page.Items = append(page.Items, types.Item{
			ID:        it.ID,
			Title:     it.Title,
			UpdatedAt: time.Time(it.UpdateTime),
		})
	}
	return page
}

// flexString decodes a JSON string or number; null decodes to "".
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("cursor: %w", err)
	}
	*s = flexString(n.String())
	return nil
}

// flexTime decodes RFC 3339 strings and unix timestamps in seconds or milliseconds.
type flexTime time.Time

func (t *flexTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = flexTime{}
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		if v == "" {
			*t = flexTime{}
			return nil
		}
		if parsed, err := time.Parse(time.RFC3339Nano, v); err == nil {
			*t = flexTime(parsed)
			return nil
		}
		// Some payloads quote the numeric timestamp.
		data = []byte(strings.TrimSpace(v))
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("update_time %s: %w", data, err)
	}
	if f > 1e12 {
		*t = flexTime(time.UnixMilli(int64(f)))
		return nil
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	*t = flexTime(time.Unix(sec, nsec))
	return nil
}
