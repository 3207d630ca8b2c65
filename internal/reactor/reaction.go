package reactor

import (
	"fmt"
)

// Reaction selects actions to execute when its trigger fires.
type Reaction struct {
	Service string
	Index   int
	Execute []string
	When    Trigger
}

// ID identifies the reaction by owning service and position, e.g. "web#2".
func (r Reaction) ID() string {
	return fmt.Sprintf("%s#%d", r.Service, r.Index)
}

type reactionDoc struct {
	Execute []string `json:"execute"`
	When    *whenDoc `json:"when"`
}

type whenDoc struct {
	Command  *string   `json:"command"`
	ExitCode *int      `json:"exitcode"`
	Files    *[]string `json:"files"`
}

// BuildReactions validates a react document and builds reactions for service in declared order.
// The document must be a sequence; a service without reactions has no document at all.
func BuildReactions(service string, doc any) ([]Reaction, error) {
	if err := ValidateReactions(service, doc); err != nil {
		return nil, err
	}
	var entries []reactionDoc
	if err := decodeInto(service, KindReact, doc, &entries); err != nil {
		return nil, err
	}

	reactions := make([]Reaction, 0, len(entries))
	for i, entry := range entries {
		trigger, err := newTrigger(service, i, entry.When)
		if err != nil {
			return nil, err
		}
		execute := make([]string, 0, len(entry.Execute))
		for _, name := range entry.Execute {
			execute = append(execute, Qualify(service, name))
		}
		reactions = append(reactions, Reaction{
			Service: service,
			Index:   i,
			Execute: execute,
			When:    trigger,
		})
	}
	return reactions, nil
}
