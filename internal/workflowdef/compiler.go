package workflowdef

import (
	"fmt"
	"time"

	"github.com/lyzr/workflowkernel/internal/node"
	"github.com/lyzr/workflowkernel/internal/tasks"
	"github.com/lyzr/workflowkernel/internal/werrors"
)

type compiler struct {
	errors  map[string]werrors.Error
	retries map[string]*werrors.RetryPolicy
}

// compileDo builds the synthetic root Do node wrapping the workflow's
// top-level task list.
func (c *compiler) compileDo(items []map[string]any, parent *node.Node, pos node.Position) (*node.Node, error) {
	children, err := c.compileTaskList(items, nil, pos.AppendToken("do"))
	if err != nil {
		return nil, err
	}
	root := node.NewNode(pos, node.KindDo, "", &tasks.DoConfig{}, parent, children)
	for i := range root.Children {
		root.Children[i].Parent = root
	}
	return root, nil
}

// compileTaskList compiles an ordered list of {name: def} single-key
// maps into Nodes positioned under base, indexed numerically.
func (c *compiler) compileTaskList(items []map[string]any, parent *node.Node, base node.Position) ([]*node.Node, error) {
	out := make([]*node.Node, 0, len(items))
	for i, item := range items {
		if len(item) != 1 {
			return nil, fmt.Errorf("task list item %d: expected exactly one name key, got %d", i, len(item))
		}
		for name, def := range item {
			defMap, _ := def.(map[string]any)
			n, err := c.compileTask(name, defMap, parent, base.AppendIndex(i))
			if err != nil {
				return nil, fmt.Errorf("task %q: %w", name, err)
			}
			out = append(out, n)
		}
	}
	return out, nil
}

// compileTask dispatches on which kind-identifying key is present in
// def, mirroring the DSL's own polymorphic task encoding.
func (c *compiler) compileTask(name string, def map[string]any, parent *node.Node, pos node.Position) (*node.Node, error) {
	base := compileBase(name, def)

	switch {
	case def["do"] != nil && def["for"] == nil:
		items, err := asTaskList(def["do"])
		if err != nil {
			return nil, err
		}
		cfg := &tasks.DoConfig{Base: base}
		n := node.NewNode(pos, node.KindDo, name, cfg, parent, nil)
		children, err := c.compileTaskList(items, n, pos.AppendToken("do"))
		if err != nil {
			return nil, err
		}
		n.SetChildren(children)
		return n, nil

	case def["for"] != nil:
		forSpec, _ := def["for"].(map[string]any)
		cfg := &tasks.ForConfig{
			Base:  base,
			In:    forSpec["in"],
			Each:  getString(forSpec, "each"),
			At:    getString(forSpec, "at"),
			While: def["while"],
		}
		n := node.NewNode(pos, node.KindFor, name, cfg, parent, nil)
		items, err := asTaskList(def["do"])
		if err != nil {
			return nil, err
		}
		children, err := c.compileTaskList(items, n, pos.AppendToken("for"))
		if err != nil {
			return nil, err
		}
		n.SetChildren(children)
		return n, nil

	case def["switch"] != nil:
		rawCases, _ := def["switch"].([]any)
		cases := make([]tasks.SwitchCase, 0, len(rawCases))
		for _, rc := range rawCases {
			m, _ := rc.(map[string]any)
			for caseName, caseDef := range m {
				cd, _ := caseDef.(map[string]any)
				cases = append(cases, tasks.SwitchCase{
					Name: caseName,
					When: cd["when"],
					Then: getString(cd, "then"),
				})
			}
		}
		cfg := &tasks.SwitchConfig{Base: base, Cases: cases}
		return node.NewNode(pos, node.KindSwitch, name, cfg, parent, nil), nil

	case def["fork"] != nil:
		forkSpec, _ := def["fork"].(map[string]any)
		rawBranches, _ := forkSpec["branches"].([]any)
		n := node.NewNode(pos, node.KindFork, name, nil, parent, nil)
		branches := make([]tasks.ForkBranch, 0, len(rawBranches))
		allChildren := make([]*node.Node, 0)
		for bi, rb := range rawBranches {
			m, _ := rb.(map[string]any)
			for branchName, branchDef := range m {
				bdMap, _ := branchDef.(map[string]any)
				items, err := asTaskList(bdMap["do"])
				if err != nil {
					return nil, err
				}
				branchPos := pos.AppendToken("branch").AppendName(branchName)
				children, err := c.compileTaskList(items, n, branchPos.AppendToken("do"))
				if err != nil {
					return nil, err
				}
				if len(children) == 0 {
					return nil, fmt.Errorf("fork branch %q: empty body", branchName)
				}
				branches = append(branches, tasks.ForkBranch{Name: branchName, Root: children[0]})
				allChildren = append(allChildren, children...)
				_ = bi
			}
		}
		n.SetChildren(allChildren)
		cfg := &tasks.ForkConfig{Base: base, Branches: branches}
		n.Definition = cfg
		return n, nil

	case def["try"] != nil:
		tryItems, err := asTaskList(def["try"])
		if err != nil {
			return nil, err
		}
		n := node.NewNode(pos, node.KindTry, name, nil, parent, nil)
		tryChildren, err := c.compileTaskList(tryItems, n, pos.AppendToken("try"))
		if err != nil {
			return nil, err
		}
		n.SetChildren(tryChildren)

		catchSpec, _ := def["catch"].(map[string]any)
		catch := tasks.CatchConfig{As: getString(catchSpec, "as")}
		if errSpec, ok := catchSpec["errors"].(map[string]any); ok {
			if withSpec, ok := errSpec["with"].(map[string]any); ok {
				catch.Errors = compileErrorFilter(withSpec)
			}
		}
		catch.When = catchSpec["when"]
		catch.ExceptWhen = catchSpec["exceptWhen"]
		if retrySpec, ok := catchSpec["retry"]; ok {
			rp, err := c.resolveRetryPolicy(retrySpec)
			if err != nil {
				return nil, err
			}
			catch.Retry = rp
		}
		if catchDoItems, err := asTaskList(catchSpec["do"]); err == nil && len(catchDoItems) > 0 {
			catchDoNodes, err := c.compileTaskList(catchDoItems, n, pos.AppendToken("catch").AppendToken("do"))
			if err != nil {
				return nil, err
			}
			catch.Do = catchDoNodes
		}
		n.Definition = &tasks.TryConfig{Base: base, Catch: catch}
		return n, nil

	case def["set"] != nil:
		cfg := &tasks.SetConfig{Base: base, Value: def["set"]}
		return node.NewNode(pos, node.KindSet, name, cfg, parent, nil), nil

	case def["raise"] != nil:
		raiseSpec, _ := def["raise"].(map[string]any)
		errSpec, _ := raiseSpec["error"].(map[string]any)
		var e werrors.Error
		if ref, ok := raiseSpec["ref"].(string); ok {
			if catalogued, found := c.errors[ref]; found {
				e = catalogued
			}
		}
		applyInlineError(&e, errSpec)
		cfg := &tasks.RaiseConfig{Base: base, Error: e}
		return node.NewNode(pos, node.KindRaise, name, cfg, parent, nil), nil

	case def["wait"] != nil:
		var duration string
		switch w := def["wait"].(type) {
		case string:
			duration = w
		case map[string]any:
			duration = getString(w, "duration")
		}
		cfg := &tasks.WaitConfig{Base: base, Duration: duration}
		return node.NewNode(pos, node.KindWait, name, cfg, parent, nil), nil

	case def["call"] != nil:
		callName, _ := def["call"].(string)
		cfg := &tasks.CallConfig{Base: base, Kind: tasks.CallKind(callName), With: def["with"]}
		return node.NewNode(pos, node.KindCall, name, cfg, parent, nil), nil

	case def["listen"] != nil:
		listenSpec, _ := def["listen"].(map[string]any)
		toSpec, _ := listenSpec["to"].(map[string]any)
		rawFilters, _ := toSpec["any"].([]any)
		filters := make([]tasks.EventFilter, 0, len(rawFilters))
		for _, rf := range rawFilters {
			fm, _ := rf.(map[string]any)
			filters = append(filters, tasks.EventFilter{Type: getString(fm, "type"), Source: getString(fm, "source")})
		}
		cfg := &tasks.ListenConfig{Base: base, Filters: filters}
		return node.NewNode(pos, node.KindListen, name, cfg, parent, nil), nil

	case def["emit"] != nil:
		emitSpec, _ := def["emit"].(map[string]any)
		eventSpec := emitSpec["event"]
		cfg := &tasks.EmitConfig{Base: base, Template: eventSpec}
		return node.NewNode(pos, node.KindEmit, name, cfg, parent, nil), nil
	}

	return nil, fmt.Errorf("unrecognized task kind for %q", name)
}

func compileBase(name string, def map[string]any) tasks.Base {
	b := tasks.Base{Name: name}
	if inSpec, ok := def["input"].(map[string]any); ok {
		b.Input = tasks.InputSpec{Schema: inSpec["schema"], From: inSpec["from"]}
	}
	if outSpec, ok := def["output"].(map[string]any); ok {
		b.Output = tasks.OutputSpec{Schema: outSpec["schema"], As: outSpec["as"]}
	}
	if expSpec, ok := def["export"].(map[string]any); ok {
		b.Export = tasks.ExportSpec{Schema: expSpec["schema"], As: expSpec["as"]}
	}
	b.If = def["if"]
	b.Then = thenToString(def["then"])
	if timeoutSpec, ok := def["timeout"]; ok {
		if d, err := parseGoDuration(timeoutSpec); err == nil {
			b.Timeout = d
		}
	}
	return b
}

func thenToString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		return getString(t, "then")
	default:
		return ""
	}
}

func parseGoDuration(v any) (time.Duration, error) {
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("timeout must be a duration string")
	}
	rp := &werrors.RetryPolicy{Delay: s}
	return rp.ParseDelay()
}

func asTaskList(v any) ([]map[string]any, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a task list")
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected a task map")
		}
		out = append(out, m)
	}
	return out, nil
}

func compileErrorFilter(m map[string]any) werrors.Filter {
	return werrors.Filter{
		Type:     werrors.Type(getString(m, "type")),
		Status:   getInt(m, "status"),
		Instance: getString(m, "instance"),
		Title:    getString(m, "title"),
		Detail:   getString(m, "detail"),
	}
}

func applyInlineError(e *werrors.Error, m map[string]any) {
	if m == nil {
		return
	}
	if t := getString(m, "type"); t != "" {
		e.Type = werrors.Type(t)
	}
	if s := getInt(m, "status"); s != 0 {
		e.Status = s
	}
	if t := getString(m, "title"); t != "" {
		e.Title = t
	}
	if d := getString(m, "detail"); d != "" {
		e.Detail = d
	}
}

func (c *compiler) resolveRetryPolicy(spec any) (*werrors.RetryPolicy, error) {
	switch v := spec.(type) {
	case string:
		if rp, ok := c.retries[v]; ok {
			return rp, nil
		}
		return nil, fmt.Errorf("unknown retry policy reference %q", v)
	case map[string]any:
		return compileRetryPolicy(v), nil
	default:
		return nil, fmt.Errorf("invalid retry policy specification")
	}
}

func compileRetryPolicy(m map[string]any) *werrors.RetryPolicy {
	rp := &werrors.RetryPolicy{
		Delay: getString(m, "delay"),
		When:  getString(m, "when"),
	}
	if backoffSpec, ok := m["backoff"].(map[string]any); ok {
		for kind := range backoffSpec {
			rp.Backoff = werrors.BackoffKind(kind)
		}
	}
	if limitSpec, ok := m["limit"].(map[string]any); ok {
		if attemptSpec, ok := limitSpec["attempt"].(map[string]any); ok {
			rp.Limit.Attempt = getInt(attemptSpec, "count")
		}
		if durSpec, ok := limitSpec["duration"].(string); ok {
			d, _ := (&werrors.RetryPolicy{Delay: durSpec}).ParseDelay()
			rp.Limit.Duration = d
		}
	}
	if jitterSpec, ok := m["jitter"].(map[string]any); ok {
		from, _ := (&werrors.RetryPolicy{Delay: getString(jitterSpec, "from")}).ParseDelay()
		to, _ := (&werrors.RetryPolicy{Delay: getString(jitterSpec, "to")}).ParseDelay()
		rp.Jitter = &werrors.Jitter{From: from, To: to}
	}
	return rp
}

func getString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func getInt(m map[string]any, key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
