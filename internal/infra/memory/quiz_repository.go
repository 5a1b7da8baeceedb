package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"quizdeck-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuizLoader fetches quiz content from a backing store (e.g., document DB).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
}

// QuizRepository caches quizzes with TTL to avoid repeated DB hits. A
// non-positive TTL caches without expiry, the same meaning a zero TTL
// has for the Redis-backed repository. The cache is viewer-independent;
// the draft visibility rule is applied on every read.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[int64]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time // zero means no expiry
}

func (c cachedQuiz) live(now time.Time) bool {
	return c.expiresAt.IsZero() || c.expiresAt.After(now)
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int64]cachedQuiz),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID int64, viewer string) (domain.Quiz, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[quizID]; ok && entry.live(now) {
		r.mu.RUnlock()
		return visibleQuiz(entry.quiz, viewer)
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(quizKey(quizID), func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[quizID]; ok && entry.live(now) {
			r.mu.RUnlock()
			return entry.quiz, nil
		}
		r.mu.RUnlock()

		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		if err := quiz.Validate(); err != nil {
			return domain.Quiz{}, err
		}

		entry := cachedQuiz{quiz: quiz}
		if r.ttl > 0 {
			entry.expiresAt = now.Add(r.ttlWithJitter())
		}
		r.mu.Lock()
		r.cache[quizID] = entry
		r.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return visibleQuiz(result.(domain.Quiz), viewer)
}

// visibleQuiz hides invisible drafts behind the same not-found error as a
// missing quiz.
func visibleQuiz(quiz domain.Quiz, viewer string) (domain.Quiz, error) {
	if !quiz.VisibleTo(viewer) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func quizKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuizLoader is a simple loader backed by an in-memory map (useful
// for tests/demos).
type StaticQuizLoader struct {
	quizzes map[int64]domain.Quiz
}

func NewStaticQuizLoader(quizzes map[int64]domain.Quiz) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID int64) (domain.Quiz, error) {
	if quiz, ok := l.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}
