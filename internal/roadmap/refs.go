package roadmap

// RefTable resolves prerequisite references, which may name either a
// task id or a task title. Legacy documents stored titles, newer ones
// store ids; both must resolve. Build one table per operation and route
// every lookup through it.
type RefTable struct {
	byID    map[string]*Task
	byTitle map[string]*Task
}

// BuildRefTable indexes all tasks in the document by id and by title.
// When two tasks share a title, the first one wins — ids are unique,
// titles are best-effort legacy references.
func BuildRefTable(d *Document) *RefTable {
	rt := &RefTable{
		byID:    make(map[string]*Task, len(d.Tasks)),
		byTitle: make(map[string]*Task, len(d.Tasks)),
	}
	for i := range d.Tasks {
		t := &d.Tasks[i]
		rt.byID[t.ID] = t
		if _, exists := rt.byTitle[t.Title]; !exists {
			rt.byTitle[t.Title] = t
		}
	}
	return rt
}

// Resolve returns the task a reference points to: ids take precedence
// over titles. Returns nil when the reference resolves to nothing.
func (rt *RefTable) Resolve(ref string) *Task {
	if t, ok := rt.byID[ref]; ok {
		return t
	}
	if t, ok := rt.byTitle[ref]; ok {
		return t
	}
	return nil
}

// PrerequisitesMet reports whether every prerequisite of the task
// resolves to a completed task. An unresolvable reference counts as
// unmet — a task gated on a missing prerequisite stays inadmissible.
func (rt *RefTable) PrerequisitesMet(t *Task) bool {
	for _, ref := range t.Prerequisites {
		dep := rt.Resolve(ref)
		if dep == nil || !dep.Completed {
			return false
		}
	}
	return true
}
