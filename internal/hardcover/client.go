// Package hardcover talks to the Hardcover GraphQL API: token checks, ISBN
// lookups and rating/review sync.
package hardcover

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"
)

const DefaultEndpoint = "https://api.hardcover.app/v1/graphql"

var (
	ErrBookNotFound       = errors.New("book not found in Hardcover by ISBN")
	ErrInvalidRating      = errors.New("rating must be between 0 and 5")
	ErrUnexpectedResponse = errors.New("unexpected response format")
	ErrUnsupported        = errors.New("hardcover schema does not support this operation")
)

// GraphQLError carries the messages of a response's errors array.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "graphql errors: " + strings.Join(e.Messages, ", ")
}

func (e *GraphQLError) duplicate() bool {
	for _, msg := range e.Messages {
		m := strings.ToLower(msg)
		if strings.Contains(m, "already exists") || strings.Contains(m, "duplicate") || strings.Contains(m, "unique") {
			return true
		}
	}
	return false
}

// User is the canonical shape of the "me" query, whichever wire form it took.
type User struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	CachedImageURL string `json:"cachedImageUrl"`
}

// Capabilities describes the parts of the schema this client depends on.
type Capabilities struct {
	InsertUserBook bool
	ISBNFields     []string
}

var defaultCapabilities = Capabilities{
	InsertUserBook: true,
	ISBNFields:     []string{"isbn_13", "isbn_10"},
}

func (c Capabilities) hasISBNField(field string) bool {
	for _, f := range c.ISBNFields {
		if f == field {
			return true
		}
	}
	return false
}

type Client struct {
	endpoint string
	http     *http.Client
	logger   zerolog.Logger

	mu     sync.RWMutex
	caps   *Capabilities
	flight singleflight.Group
}

func NewClient(endpoint string, timeout time.Duration, logger zerolog.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "hardcover").Logger(),
	}
}

// CleanToken strips whitespace and a pasted "Bearer " prefix.
func CleanToken(token string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
}

var isbnSeparators = regexp.MustCompile(`[-\s]`)

// NormalizeISBN removes hyphens and whitespace.
func NormalizeISBN(isbn string) string {
	return isbnSeparators.ReplaceAllString(isbn, "")
}

// one maps a field that may be an object or a single-element array to the object.
func one(r gjson.Result) gjson.Result {
	if r.IsArray() {
		return r.Get("0")
	}
	return r
}

func (c *Client) do(ctx context.Context, token, query string, variables map[string]interface{}) (gjson.Result, error) {
	payload, err := json.Marshal(map[string]interface{}{"query": query, "variables": variables})
	if err != nil {
		return gjson.Result{}, errors.Wrap(err, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return gjson.Result{}, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+CleanToken(token))

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, errors.Wrap(err, "failed to read response")
	}
	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, errors.Wrap(ErrUnexpectedResponse, "response is not JSON")
	}

	parsed := gjson.ParseBytes(body)
	if errs := parsed.Get("errors"); errs.IsArray() && len(errs.Array()) > 0 {
		gqlErr := &GraphQLError{}
		for _, msg := range errs.Get("#.message").Array() {
			gqlErr.Messages = append(gqlErr.Messages, msg.String())
		}
		return gjson.Result{}, gqlErr
	}
	return parsed.Get("data"), nil
}

// Me validates token and returns the account it belongs to.
func (c *Client) Me(ctx context.Context, token string) (User, error) {
	const query = `query { me { id username cached_image } }`

	data, err := c.do(ctx, token, query, nil)
	if err != nil {
		return User{}, err
	}
	me := one(data.Get("me"))
	if !me.IsObject() {
		return User{}, errors.Wrap(ErrUnexpectedResponse, "no 'me' field")
	}

	user := User{
		ID:       me.Get("id").String(),
		Username: me.Get("username").String(),
	}
	switch img := me.Get("cached_image"); {
	case img.IsObject():
		user.CachedImageURL = img.Get("url").String()
	case img.Type == gjson.String:
		user.CachedImageURL = img.String()
	}
	return user, nil
}

// Capabilities introspects the schema once per client. When introspection is
// refused the documented defaults are cached instead. Concurrent callers share
// one in-flight introspection and no lock is held during the request.
func (c *Client) Capabilities(ctx context.Context, token string) (Capabilities, error) {
	if caps, ok := c.cachedCapabilities(); ok {
		return caps, nil
	}
	v, err, _ := c.flight.Do("capabilities", func() (interface{}, error) {
		if caps, ok := c.cachedCapabilities(); ok {
			return caps, nil
		}
		caps, err := c.introspect(ctx, token)
		if err != nil {
			return Capabilities{}, err
		}
		c.mu.Lock()
		c.caps = &caps
		c.mu.Unlock()
		return caps, nil
	})
	if err != nil {
		return Capabilities{}, err
	}
	return v.(Capabilities), nil
}

func (c *Client) cachedCapabilities() (Capabilities, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.caps == nil {
		return Capabilities{}, false
	}
	return *c.caps, true
}

func (c *Client) introspect(ctx context.Context, token string) (Capabilities, error) {
	const query = `query Capabilities {
		mutation: __type(name: "mutation_root") { fields { name } }
		editions: __type(name: "editions_bool_exp") { inputFields { name } }
	}`

	data, err := c.do(ctx, token, query, nil)
	var gqlErr *GraphQLError
	switch {
	case errors.As(err, &gqlErr):
		c.logger.Warn().Err(err).Msg("schema introspection refused; using default capabilities")
		return defaultCapabilities, nil
	case err != nil:
		return Capabilities{}, err
	}

	caps := defaultCapabilities
	if mutations := data.Get("mutation.fields.#.name"); mutations.IsArray() && len(mutations.Array()) > 0 {
		caps.InsertUserBook = false
		for _, name := range mutations.Array() {
			if name.String() == "insert_user_book" {
				caps.InsertUserBook = true
			}
		}
	}
	if inputs := data.Get("editions.inputFields.#.name"); inputs.IsArray() && len(inputs.Array()) > 0 {
		caps.ISBNFields = nil
		for _, field := range []string{"isbn_13", "isbn_10"} {
			for _, name := range inputs.Array() {
				if name.String() == field {
					caps.ISBNFields = append(caps.ISBNFields, field)
				}
			}
		}
	}

	c.logger.Debug().Bool("insert_user_book", caps.InsertUserBook).Strs("isbn_fields", caps.ISBNFields).Msg("hardcover capabilities discovered")
	return caps, nil
}

// isbnFilter builds the editions where-clause for an ISBN of the given length.
func isbnFilter(caps Capabilities, isbn string) (string, error) {
	var fields []string
	switch len(isbn) {
	case 10:
		fields = []string{"isbn_10"}
	case 13:
		fields = []string{"isbn_13"}
	default:
		fields = []string{"isbn_13", "isbn_10"}
	}

	var usable []string
	for _, f := range fields {
		if caps.hasISBNField(f) {
			usable = append(usable, f)
		}
	}
	switch len(usable) {
	case 0:
		return "", errors.Wrap(ErrUnsupported, "no ISBN filter fields")
	case 1:
		return fmt.Sprintf("{%s: {_eq: $isbn}}", usable[0]), nil
	default:
		parts := make([]string, len(usable))
		for i, f := range usable {
			parts[i] = fmt.Sprintf("{%s: {_eq: $isbn}}", f)
		}
		return fmt.Sprintf("{_or: [%s]}", strings.Join(parts, ", ")), nil
	}
}

// LookupBookByISBN returns the Hardcover book id for an ISBN-10 or ISBN-13.
func (c *Client) LookupBookByISBN(ctx context.Context, token, isbn string) (int64, error) {
	normalized := NormalizeISBN(isbn)
	if normalized == "" {
		return 0, ErrBookNotFound
	}
	caps, err := c.Capabilities(ctx, token)
	if err != nil {
		return 0, err
	}
	where, err := isbnFilter(caps, normalized)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`query LookupBook($isbn: String!) {
		editions(where: %s) { id book { id } }
	}`, where)

	data, err := c.do(ctx, token, query, map[string]interface{}{"isbn": normalized})
	if err != nil {
		return 0, err
	}

	var bookID int64
	data.Get("editions").ForEach(func(_, edition gjson.Result) bool {
		if id := edition.Get("book.id").Int(); id > 0 {
			bookID = id
			return false
		}
		return true
	})
	if bookID == 0 {
		return 0, ErrBookNotFound
	}
	return bookID, nil
}

// SyncRating records a read with rating and optional review. An existing
// entry for the same book counts as success.
func (c *Client) SyncRating(ctx context.Context, token, isbn string, rating float64, review string) error {
	if rating < 0 || rating > 5 {
		return ErrInvalidRating
	}

	bookID, err := c.LookupBookByISBN(ctx, token, isbn)
	if err != nil {
		return errors.Wrap(err, "book lookup failed")
	}
	caps, err := c.Capabilities(ctx, token)
	if err != nil {
		return err
	}
	if !caps.InsertUserBook {
		return errors.Wrap(ErrUnsupported, "insert_user_book")
	}

	variables := map[string]interface{}{"bookId": bookID, "rating": rating}
	query := `mutation CreateUserBook($bookId: Int!, $rating: numeric!) {
		insert_user_book(object: {book_id: $bookId, rating: $rating, status_id: 3, read_count: 1}) { id }
	}`
	if review != "" {
		variables["review"] = review
		query = `mutation CreateUserBook($bookId: Int!, $rating: numeric!, $review: String!) {
		insert_user_book(object: {book_id: $bookId, rating: $rating, review: $review, status_id: 3, read_count: 1}) { id }
	}`
	}

	data, err := c.do(ctx, token, query, variables)
	var gqlErr *GraphQLError
	if errors.As(err, &gqlErr) && gqlErr.duplicate() {
		return nil
	}
	if err != nil {
		return err
	}

	if one(data.Get("insert_user_book")).Get("id").Exists() {
		return nil
	}
	return errors.Wrap(ErrUnexpectedResponse, "failed to create user_book relationship")
}
