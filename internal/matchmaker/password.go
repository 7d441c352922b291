package matchmaker

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	DefaultPasswordLength   = 6
	DefaultPasswordAlphabet = "abcdefghijklmnopqrstuvwxyz"
	DefaultRetention        = time.Hour
	DefaultMaxAttempts      = 1000
)

type IssuerOptions struct {
	Length      int
	Alphabet    string
	Retention   time.Duration
	MaxAttempts int
	Now         func() time.Time
	Rand        *rand.Rand
}

// SessionIssuer 生成加入口令与会话 ID。
// ledger 记录 口令 -> 签发时间，超过 retention 的条目在下一次签发前清理；
// 唯一性只针对仍存活的口令。
type SessionIssuer struct {
	mu          sync.Mutex
	length      int
	alphabet    []rune
	retention   time.Duration
	maxAttempts int
	now         func() time.Time
	rnd         *rand.Rand
	entropy     io.Reader
	ledger      map[string]time.Time
}

func NewSessionIssuer(opts IssuerOptions) *SessionIssuer {
	if opts.Length <= 0 {
		opts.Length = DefaultPasswordLength
	}
	if opts.Alphabet == "" {
		opts.Alphabet = DefaultPasswordAlphabet
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SessionIssuer{
		length:      opts.Length,
		alphabet:    []rune(opts.Alphabet),
		retention:   opts.Retention,
		maxAttempts: opts.MaxAttempts,
		now:         opts.Now,
		rnd:         opts.Rand,
		entropy:     ulid.Monotonic(rand.New(rand.NewSource(opts.Rand.Int63())), 0),
		ledger:      make(map[string]time.Time),
	}
}

// GeneratePassword 清理过期条目 -> 抽取 -> 冲突重抽 -> 记账
func (s *SessionIssuer) GeneratePassword() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)

	if float64(len(s.ledger)) >= s.capacity() {
		return "", fmt.Errorf("%w: %d live codes", ErrResourceExhausted, len(s.ledger))
	}
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		code := s.draw()
		if _, taken := s.ledger[code]; taken {
			continue
		}
		s.ledger[code] = now
		return code, nil
	}
	return "", fmt.Errorf("%w: no free code after %d attempts", ErrResourceExhausted, s.maxAttempts)
}

// GenerateSessionID 进程内唯一，只用于关联 / 日志，不作为秘密
func (s *SessionIssuer) GenerateSessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(s.now()), s.entropy)
	return "session_" + id.String()
}

// Live 当前仍受保护的口令数量
func (s *SessionIssuer) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(s.now())
	return len(s.ledger)
}

func (s *SessionIssuer) issuedAt(code string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.ledger[code]
	return t, ok
}

func (s *SessionIssuer) Retention() time.Duration { return s.retention }

func (s *SessionIssuer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger = make(map[string]time.Time)
}

func (s *SessionIssuer) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.retention)
	for code, issued := range s.ledger {
		if issued.Before(cutoff) {
			delete(s.ledger, code)
		}
	}
}

func (s *SessionIssuer) draw() string {
	b := make([]rune, s.length)
	for i := range b {
		b[i] = s.alphabet[s.rnd.Intn(len(s.alphabet))]
	}
	return string(b)
}

// capacity 口令空间大小 len(alphabet)^length
func (s *SessionIssuer) capacity() float64 {
	return math.Pow(float64(len(s.alphabet)), float64(s.length))
}
