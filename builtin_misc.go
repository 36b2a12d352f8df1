package basil

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// task is the handle returned by Task.Run: a computation running on its own
// goroutine. Await blocks for the result; awaiting twice returns the same
// value.
type task struct {
	eg  *errgroup.Group
	val Value
}

func (t *task) TypeName() string { return "Task" }

func (t *task) Await() (Value, error) {
	if err := t.eg.Wait(); err != nil {
		return Nothing, err
	}
	return t.val, nil
}

func taskOf(v Value) (*task, bool) {
	if v.Kind != KindObject {
		return nil, false
	}
	t, ok := v.Data.(*task)
	return t, ok
}

func registerMiscBuiltins(ip *Interpreter) {
	// Task.Run(fn [, args...]) starts fn on a fresh goroutine. The spawned
	// call gets its own interpreter view sharing Global state; scripts that
	// share mutable state across tasks are on their own, same as the host
	// dialect.
	taskRun := func(c *CallCtx) (Value, error) {
		fn := c.Arg(0)
		if fn.Kind != KindCallable {
			return Nothing, fmt.Errorf("Task.Run expects a Function argument")
		}
		args := append([]Value(nil), c.Args[1:]...)
		t := &task{eg: &errgroup.Group{}}
		t.eg.Go(func() error {
			v, err := c.Ip.Apply(fn, args)
			if err != nil {
				return err
			}
			t.val = v
			return nil
		})
		return ObjVal(t), nil
	}
	ip.RegisterNative("TaskRun", 1, -1, taskRun)
	if cell, ok := ip.Core.Lookup("TaskRun"); ok {
		ip.Core.DefineConst("Task.Run", cell.V)
	}
	ip.RegisterMethod("Task", "Wait", func(c *CallCtx) (Value, error) {
		t := c.Recv.Data.(*task)
		_, err := t.Await()
		return Nothing, err
	})
	ip.RegisterMethod("Task", "Result", func(c *CallCtx) (Value, error) {
		return c.Recv.Data.(*task).Await()
	})

	ip.RegisterNative("NewGuid", 0, 0, func(c *CallCtx) (Value, error) {
		return StrVal(uuid.NewString()), nil
	})
	if cell, ok := ip.Core.Lookup("NewGuid"); ok {
		ip.Core.DefineConst("Guid.NewGuid", cell.V)
	}

	ip.RegisterNative("Environ", 1, 1, func(c *CallCtx) (Value, error) {
		return StrVal(os.Getenv(c.Str(0))), nil
	})

	// Sleep pauses for the given number of milliseconds.
	ip.RegisterNative("Sleep", 1, 1, func(c *CallCtx) (Value, error) {
		ms, err := c.Int(0)
		if err != nil {
			return Nothing, err
		}
		if ms > 0 {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		}
		return Nothing, nil
	})

	ip.RegisterNative("Beep", 0, 0, func(c *CallCtx) (Value, error) {
		fmt.Fprint(ip.Stdout, "\a")
		return Nothing, nil
	})
}
