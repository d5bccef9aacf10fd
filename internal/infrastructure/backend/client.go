package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("backend unavailable")
)

type User struct {
	UID            string   `json:"uid"`
	Username       string   `json:"username"`
	Email          string   `json:"email"`
	ProfilePicture string   `json:"profilePicture,omitempty"`
	SkillDesired   []string `json:"skillDesired,omitempty"`
	SkillOffered   []string `json:"skillOffered,omitempty"`
}

type Skill struct {
	ID          json.Number `json:"id"`
	Label       string      `json:"label"`
	Description string      `json:"description,omitempty"`
}

// SkillEntry is one offered or desired skill row; the embedded skill record
// carries the catalog data.
type SkillEntry struct {
	ID      int64  `json:"id"`
	UserUID string `json:"userUid"`
	Skill   Skill  `json:"skill"`
}

// Client talks to the system of record for users and skills.
type Client interface {
	GetUser(ctx context.Context, userUID string) (*User, error)
	GetAllUsers(ctx context.Context) ([]User, error)
	GetSkillsOffered(ctx context.Context, userUID string) ([]SkillEntry, error)
	GetSkillsDesired(ctx context.Context, userUID string) ([]SkillEntry, error)
}

type httpClient struct {
	baseURL string
	client  *http.Client
	logger  *log.Logger
}

func NewClient(baseURL string, logger *log.Logger) Client {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil
	}
	return &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
		logger:  logger,
	}
}

func (c *httpClient) GetUser(ctx context.Context, userUID string) (*User, error) {
	var out User
	err := c.getJSON(ctx, "/api/users/"+url.PathEscape(userUID), &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) GetAllUsers(ctx context.Context) ([]User, error) {
	var out []User
	if err := c.getJSON(ctx, "/api/users", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *httpClient) GetSkillsOffered(ctx context.Context, userUID string) ([]SkillEntry, error) {
	var out []SkillEntry
	err := c.getJSON(ctx, "/api/skills/offered/user/"+url.PathEscape(userUID), &out)
	if errors.Is(err, ErrNotFound) {
		return []SkillEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *httpClient) GetSkillsDesired(ctx context.Context, userUID string) ([]SkillEntry, error) {
	var out []SkillEntry
	err := c.getJSON(ctx, "/api/skills/desired/user/"+url.PathEscape(userUID), &out)
	if errors.Is(err, ErrNotFound) {
		return []SkillEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *httpClient) getJSON(ctx context.Context, path string, out any) error {
	if c == nil || c.client == nil {
		return errors.New("nil backend client")
	}
	endpoint := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.Printf("[Backend] GET %s error: %v", endpoint, err)
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		bodyStr := strings.TrimSpace(string(rb))
		if c.logger != nil {
			c.logger.Printf("[Backend] GET %s status=%d body=%q", endpoint, resp.StatusCode, bodyStr)
		}
		return fmt.Errorf("%w: status=%d", ErrUnavailable, resp.StatusCode)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(out)
}

var _ Client = (*httpClient)(nil)
