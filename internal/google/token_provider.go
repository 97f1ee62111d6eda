package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
)

// TokenProvider is an interface for providing OAuth tokens for Google APIs.
// Accounts are person emails.
type TokenProvider interface {
	// GetTokenForAccount returns ErrTokenNotFound when nothing is stored.
	GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error)

	// HasTokenForAccount checks if a token exists for the specified account
	HasTokenForAccount(ctx context.Context, account string) bool

	SaveTokenForAccount(ctx context.Context, account string, tok *oauth2.Token) error
}

var accountPattern = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+$`)

// normalizeAccount lower-cases an email and rejects anything that is not
// safe to use as a file name or key suffix.
func normalizeAccount(account string) (string, error) {
	a := strings.ToLower(strings.TrimSpace(account))
	if !accountPattern.MatchString(a) {
		return "", fmt.Errorf("invalid account %q: must be an email address", account)
	}
	return a, nil
}

// FileTokenProvider keeps one JSON token file per account.
type FileTokenProvider struct {
	dir string
}

// NewFileTokenProvider stores tokens under dir, or under the user cache
// directory when dir is empty.
func NewFileTokenProvider(dir string) *FileTokenProvider {
	if dir == "" {
		dir = filepath.Join(userCacheDir(), "schedsync")
	}
	return &FileTokenProvider{dir: dir}
}

func (p *FileTokenProvider) path(account string) (string, error) {
	a, err := normalizeAccount(account)
	if err != nil {
		return "", err
	}
	return filepath.Join(p.dir, "google-"+a+".token"), nil
}

// GetTokenForAccount retrieves a token from disk for the specified account
func (p *FileTokenProvider) GetTokenForAccount(_ context.Context, account string) (*oauth2.Token, error) {
	path, err := p.path(account)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w for %s", ErrTokenNotFound, account)
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	return decodeToken(data)
}

// HasTokenForAccount checks if a token file exists for the specified account
func (p *FileTokenProvider) HasTokenForAccount(_ context.Context, account string) bool {
	path, err := p.path(account)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

func (p *FileTokenProvider) SaveTokenForAccount(_ context.Context, account string, tok *oauth2.Token) error {
	path, err := p.path(account)
	if err != nil {
		return err
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.MkdirAll(p.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// RedisClient is the part of *redis.Client the token store uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisTokenProvider keeps tokens as JSON under "<prefix>token:<email>".
type RedisTokenProvider struct {
	client RedisClient
	prefix string
}

// NewRedisTokenProvider returns a provider backed by client.
func NewRedisTokenProvider(client RedisClient, prefix string) *RedisTokenProvider {
	return &RedisTokenProvider{client: client, prefix: prefix}
}

func (p *RedisTokenProvider) key(account string) (string, error) {
	a, err := normalizeAccount(account)
	if err != nil {
		return "", err
	}
	return p.prefix + "token:" + a, nil
}

func (p *RedisTokenProvider) GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error) {
	key, err := p.key(account)
	if err != nil {
		return nil, err
	}
	data, err := p.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w for %s", ErrTokenNotFound, account)
		}
		return nil, fmt.Errorf("failed to read token from redis: %w", err)
	}
	return decodeToken(data)
}

func (p *RedisTokenProvider) HasTokenForAccount(ctx context.Context, account string) bool {
	key, err := p.key(account)
	if err != nil {
		return false
	}
	n, err := p.client.Exists(ctx, key).Result()
	return err == nil && n > 0
}

func (p *RedisTokenProvider) SaveTokenForAccount(ctx context.Context, account string, tok *oauth2.Token) error {
	key, err := p.key(account)
	if err != nil {
		return err
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := p.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write token to redis: %w", err)
	}
	return nil
}

// Ping checks that the backing Redis answers.
func (p *RedisTokenProvider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func decodeToken(data []byte) (*oauth2.Token, error) {
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("%w: malformed token: %w", ErrTokenInvalid, err)
	}
	if tok.RefreshToken == "" && tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: token has neither access nor refresh token", ErrTokenInvalid)
	}
	return &tok, nil
}

func userCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir
	}
	if runtime.GOOS == "windows" {
		return os.TempDir()
	}
	return filepath.Join(os.Getenv("HOME"), ".cache")
}
