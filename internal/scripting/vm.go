package scripting

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"
)

// ErrScript wraps every compile or runtime failure of a policy script.
var ErrScript = errors.New("switch policy script error")

const (
	scriptInitTimeout = 2 * time.Second
	scriptCallTimeout = 100 * time.Millisecond
	maxLogs           = 200
)

// Policy is a compiled switch policy. A script either defines
//
//	function policy(i, doors) { return i % 3 === 0 }
//
// or is a bare expression over i and doors, e.g. "i > 100".
// A Policy wraps a single goja runtime and must not be used concurrently.
type Policy struct {
	runtime *goja.Runtime
	fn      goja.Callable
	logs    []string
}

// Compile builds a sandboxed policy from source.
func Compile(source string) (*Policy, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("%w: empty script", ErrScript)
	}

	p := &Policy{runtime: goja.New()}
	p.injectGlobals()

	// Full scripts register policy(); anything that fails to do so is
	// retried as an expression body.
	runErr := p.run(scriptInitTimeout, func() error {
		_, err := p.runtime.RunString(source)
		return err
	})
	if runErr == nil {
		if fn, ok := goja.AssertFunction(p.runtime.Get("policy")); ok {
			p.fn = fn
			return p, nil
		}
	}

	var wrapped goja.Value
	err := p.run(scriptInitTimeout, func() error {
		v, err := p.runtime.RunString("(function (i, doors) { return (" + source + "\n); })")
		wrapped = v
		return err
	})
	if err != nil {
		if runErr != nil {
			err = runErr
		}
		return nil, fmt.Errorf("%w: %v", ErrScript, err)
	}
	fn, ok := goja.AssertFunction(wrapped)
	if !ok {
		return nil, fmt.Errorf("%w: policy is not a function", ErrScript)
	}
	p.fn = fn

	// A script that ran cleanly without defining policy is only an
	// expression if it evaluates to a primitive. Declarations such as
	// "function choose() {}" evaluate to a function object.
	if runErr == nil {
		var out goja.Value
		err := p.run(scriptInitTimeout, func() error {
			v, err := p.fn(goja.Undefined(), p.runtime.ToValue(1), p.runtime.ToValue(3))
			out = v
			return err
		})
		p.logs = p.logs[:0]
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrScript, err)
		}
		if _, isObject := out.(*goja.Object); isObject {
			return nil, fmt.Errorf("%w: policy is not defined", ErrScript)
		}
	}
	return p, nil
}

// injectGlobals registers log() and console.log and blocks unsafe globals.
func (p *Policy) injectGlobals() {
	p.runtime.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		if len(p.logs) >= maxLogs {
			p.logs = p.logs[1:]
		}
		p.logs = append(p.logs, strings.Join(parts, " "))
		return goja.Undefined()
	})

	console := p.runtime.NewObject()
	console.Set("log", p.runtime.Get("log"))
	p.runtime.Set("console", console)

	p.runtime.Set("require", goja.Undefined())
	p.runtime.Set("fetch", goja.Undefined())
	p.runtime.Set("XMLHttpRequest", goja.Undefined())
	p.runtime.Set("eval", goja.Undefined())
	p.runtime.Set("Function", goja.Undefined())

	// Every function literal still reaches a Function constructor through
	// its prototype chain. Pin those constructor slots to undefined.
	for _, proto := range functionPrototypes {
		v, err := p.runtime.RunString(proto)
		if err != nil {
			continue
		}
		obj, ok := v.(*goja.Object)
		if !ok {
			continue
		}
		_ = obj.DefineDataProperty("constructor", goja.Undefined(), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE)
	}
}

// functionPrototypes evaluate to the prototypes whose constructor property
// compiles source text. Forms the runtime cannot parse are skipped.
var functionPrototypes = []string{
	"Object.getPrototypeOf(function () {})",
	"Object.getPrototypeOf(function* () {})",
	"Object.getPrototypeOf(async function () {})",
	"Object.getPrototypeOf(async function* () {})",
}

// Switch evaluates the policy for sweep step i.
func (p *Policy) Switch(i, doors int) (bool, error) {
	var out goja.Value
	err := p.run(scriptCallTimeout, func() error {
		v, err := p.fn(goja.Undefined(), p.runtime.ToValue(i), p.runtime.ToValue(doors))
		out = v
		return err
	})
	if err != nil {
		return false, fmt.Errorf("%w: policy(%d, %d): %v", ErrScript, i, doors, err)
	}
	if _, ok := goja.AssertFunction(out); ok {
		return false, fmt.Errorf("%w: policy(%d, %d) returned a function", ErrScript, i, doors)
	}
	return out.ToBoolean(), nil
}

// Logs returns a copy of the messages the script passed to log().
func (p *Policy) Logs() []string {
	out := make([]string, len(p.logs))
	copy(out, p.logs)
	return out
}

// run executes fn and interrupts the runtime if it exceeds timeout.
func (p *Policy) run(timeout time.Duration, fn func() error) error {
	timer := time.AfterFunc(timeout, func() {
		p.runtime.Interrupt("script execution timeout")
	})
	defer func() {
		timer.Stop()
		p.runtime.ClearInterrupt()
	}()
	return fn()
}
