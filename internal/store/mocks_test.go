package store

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
)

// MockPgPool implements PgPool for testing
type MockPgPool struct {
	QueryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	ExecFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (m *MockPgPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, sql, args...)
	}
	return &MockRows{}, nil
}

func (m *MockPgPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.QueryRowFunc != nil {
		return m.QueryRowFunc(ctx, sql, args...)
	}
	return &MockRow{Err: pgx.ErrNoRows}
}

func (m *MockPgPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, sql, args...)
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

// assign copies values into scan destinations of matching types.
func assign(dest []any, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(values))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		if values[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		v := reflect.ValueOf(values[i])
		if !v.Type().AssignableTo(target.Type()) {
			return fmt.Errorf("scan column %d: cannot assign %s to %s", i, v.Type(), target.Type())
		}
		target.Set(v)
	}
	return nil
}

// MockRow implements pgx.Row
type MockRow struct {
	Values []any
	Err    error
}

func (m *MockRow) Scan(dest ...any) error {
	if m.Err != nil {
		return m.Err
	}
	return assign(dest, m.Values)
}

// MockRows implements pgx.Rows over in-memory rows
type MockRows struct {
	Data [][]any
	pos  int
}

func (m *MockRows) Close()                                       {}
func (m *MockRows) Err() error                                   { return nil }
func (m *MockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (m *MockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (m *MockRows) Values() ([]any, error)                       { return m.Data[m.pos-1], nil }
func (m *MockRows) RawValues() [][]byte                          { return nil }
func (m *MockRows) Conn() *pgx.Conn                              { return nil }

func (m *MockRows) Next() bool {
	if m.pos >= len(m.Data) {
		return false
	}
	m.pos++
	return true
}

func (m *MockRows) Scan(dest ...any) error {
	return assign(dest, m.Data[m.pos-1])
}

// fakeRedis is an in-memory RedisClient covering sorted sets and strings.
type fakeRedis struct {
	zsets   map[string]map[string]float64
	strings map[string]string
	ttls    map[string]time.Duration
	err     error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		zsets:   make(map[string]map[string]float64),
		strings: make(map[string]string),
		ttls:    make(map[string]time.Duration),
	}
}

func (f *fakeRedis) ZRangeWithScores(ctx context.Context, key string, start, stop int64) *redis.ZSliceCmd {
	cmd := redis.NewZSliceCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	var zs []redis.Z
	for member, score := range f.zsets[key] {
		zs = append(zs, redis.Z{Score: score, Member: member})
	}
	sort.Slice(zs, func(i, j int) bool {
		if zs[i].Score != zs[j].Score {
			return zs[i].Score < zs[j].Score
		}
		return zs[i].Member.(string) < zs[j].Member.(string)
	})
	cmd.SetVal(zs)
	return cmd
}

func (f *fakeRedis) ZCard(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	cmd.SetVal(int64(len(f.zsets[key])))
	return cmd
}

func (f *fakeRedis) MGet(ctx context.Context, keys ...string) *redis.SliceCmd {
	cmd := redis.NewSliceCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	vals := make([]interface{}, len(keys))
	for i, k := range keys {
		if v, ok := f.strings[k]; ok {
			vals[i] = v
		}
	}
	cmd.SetVal(vals)
	return cmd
}

func (f *fakeRedis) TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error) {
	if f.err != nil {
		return nil, f.err
	}
	if err := fn(&fakePipeliner{r: f}); err != nil {
		return nil, err
	}
	return nil, nil
}

// fakePipeliner applies queued commands immediately.
type fakePipeliner struct {
	redis.Pipeliner
	r *fakeRedis
}

func (p *fakePipeliner) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		p.r.strings[key] = string(v)
	case string:
		p.r.strings[key] = v
	default:
		p.r.strings[key] = fmt.Sprint(v)
	}
	p.r.ttls[key] = expiration
	return redis.NewStatusCmd(ctx)
}

func (p *fakePipeliner) ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd {
	if p.r.zsets[key] == nil {
		p.r.zsets[key] = make(map[string]float64)
	}
	for _, z := range members {
		p.r.zsets[key][z.Member.(string)] = z.Score
	}
	return redis.NewIntCmd(ctx)
}

func (p *fakePipeliner) ZRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd {
	for _, m := range members {
		delete(p.r.zsets[key], m.(string))
	}
	return redis.NewIntCmd(ctx)
}

func (p *fakePipeliner) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(p.r.strings, k)
		delete(p.r.ttls, k)
	}
	return redis.NewIntCmd(ctx)
}

// MockClickHouseConn implements driver.Conn for testing
type MockClickHouseConn struct {
	driver.Conn
	Batch      *MockBatch
	PrepareErr error
}

func (m *MockClickHouseConn) PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error) {
	if m.PrepareErr != nil {
		return nil, m.PrepareErr
	}
	if m.Batch == nil {
		m.Batch = &MockBatch{}
	}
	return m.Batch, nil
}

// MockBatch records appended rows
type MockBatch struct {
	driver.Batch
	Appended [][]interface{}
	Sent     bool
	Aborted  bool
	SendErr  error
}

func (m *MockBatch) Append(v ...interface{}) error {
	m.Appended = append(m.Appended, v)
	return nil
}

func (m *MockBatch) Send() error {
	if m.SendErr != nil {
		return m.SendErr
	}
	m.Sent = true
	return nil
}

func (m *MockBatch) Abort() error {
	m.Aborted = true
	return nil
}
