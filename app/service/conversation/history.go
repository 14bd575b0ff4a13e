package conversation

import "slices"

// Merge folds a turn's output into the previous state. History is concatenated
// into a fresh slice so the previous state is never written through.
func Merge(previous State, out TurnOutput) State {
	next := State{
		History:          previous.History,
		DocumentText:     previous.DocumentText,
		LastDocumentName: previous.LastDocumentName,
	}

	if len(out.NewMessages) > 0 {
		next.History = slices.Concat(previous.History, out.NewMessages)
	}

	if out.Ingested {
		next.DocumentText = out.DocumentText
		next.LastDocumentName = out.LastDocumentName
	}

	return next
}
