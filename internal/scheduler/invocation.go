package scheduler

import (
	"encoding/json"
	"fmt"
	"math"
	"runtime"
	"strconv"

	"github.com/TanveerShahriar/Thesis/internal/models"
)

// Invocation is what a function body sees while it runs on a worker.
type Invocation struct {
	Worker   int
	Function models.FunctionID
	Slot     int
	Args     []any

	pool *Pool
}

// Call invokes another table function from inside a running task and waits
// for its result. While waiting, the calling worker keeps executing tasks
// from its own queue, so a sub-task placed on the same worker cannot deadlock.
func (inv *Invocation) Call(fid models.FunctionID, weight int64, args ...any) (any, error) {
	p := inv.pool
	slot, err := p.Submit(fid, weight, args...)
	if err != nil {
		return nil, err
	}
	for {
		done, res, err := p.PollResult(fid, slot)
		if err != nil {
			return nil, err
		}
		if done {
			return res, p.ReleaseSlot(fid, slot)
		}
		if !p.helpOnce(inv.Worker) {
			runtime.Gosched()
		}
	}
}

// Int returns argument i as an int64. JSON numbers and the usual integer and
// float kinds are accepted; anything else yields 0.
func (inv *Invocation) Int(i int) int64 {
	if i < 0 || i >= len(inv.Args) {
		return 0
	}
	n, err := ToInt(inv.Args[i])
	if err != nil {
		return 0
	}
	return n
}

// ToInt converts a loosely typed numeric argument to int64.
func ToInt(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("out of range: %d", n)
		}
		return int64(n), nil
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, err
		}
		return floatToInt(f)
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}

func floatToInt(f float64) (int64, error) {
	if math.IsNaN(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("out of range: %v", f)
	}
	return int64(f), nil
}
