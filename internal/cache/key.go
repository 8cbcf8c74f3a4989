package cache

import "github.com/dzoniD/FullstackExercise/internal/filter"

const (
	ResourceTasks = "tasks"
	ResourceTags  = "tags"
)

// Key identifies one cached query: a resource kind plus its normalized,
// order-independent parameters. Two selections with the same tag set map
// to the same key regardless of the order the tags were picked in.
type Key struct {
	Resource string
	Params   string
}

func TaskListKey(sel filter.Selection) Key {
	return Key{Resource: ResourceTasks, Params: sel.Params()}
}

func TagListKey() Key {
	return Key{Resource: ResourceTags}
}
