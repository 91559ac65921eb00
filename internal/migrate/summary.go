package migrate

// Summary counts what a run did.
type Summary struct {
	Board   string `json:"board" yaml:"board"`
	Project int    `json:"project" yaml:"project"`

	ColumnsCreated      int `json:"columns_created" yaml:"columns_created"`
	ColumnsReused       int `json:"columns_reused" yaml:"columns_reused"`
	ColumnsFailed       int `json:"columns_failed" yaml:"columns_failed"`
	ColumnsRemoved      int `json:"columns_removed" yaml:"columns_removed"`
	ColumnsRemoveFailed int `json:"columns_remove_failed" yaml:"columns_remove_failed"`

	MembersResolved   int `json:"members_resolved" yaml:"members_resolved"`
	MembersUnresolved int `json:"members_unresolved" yaml:"members_unresolved"`

	CardsMigrated int `json:"cards_migrated" yaml:"cards_migrated"`
	CardsFailed   int `json:"cards_failed" yaml:"cards_failed"`
	CardsSkipped  int `json:"cards_skipped" yaml:"cards_skipped"`

	CommentsMigrated int `json:"comments_migrated" yaml:"comments_migrated"`
	CommentsFailed   int `json:"comments_failed" yaml:"comments_failed"`
	SubtasksMigrated int `json:"subtasks_migrated" yaml:"subtasks_migrated"`
	SubtasksFailed   int `json:"subtasks_failed" yaml:"subtasks_failed"`

	FilesUploaded     int `json:"files_uploaded" yaml:"files_uploaded"`
	LinksAdded        int `json:"links_added" yaml:"links_added"`
	AttachmentsFailed int `json:"attachments_failed" yaml:"attachments_failed"`

	RelationsLinked  int `json:"relations_linked" yaml:"relations_linked"`
	RelationsFailed  int `json:"relations_failed" yaml:"relations_failed"`
	RelationsSkipped int `json:"relations_skipped" yaml:"relations_skipped"`
}

// Counter is a named summary value.
type Counter struct {
	Name    string
	Value   int
	Failure bool
}

// Counters returns the summary values in display order.
func (s *Summary) Counters() []Counter {
	return []Counter{
		{"columns created", s.ColumnsCreated, false},
		{"columns reused", s.ColumnsReused, false},
		{"columns failed", s.ColumnsFailed, true},
		{"columns removed", s.ColumnsRemoved, false},
		{"column removals failed", s.ColumnsRemoveFailed, true},
		{"members resolved", s.MembersResolved, false},
		{"members unresolved", s.MembersUnresolved, true},
		{"cards migrated", s.CardsMigrated, false},
		{"cards failed", s.CardsFailed, true},
		{"cards skipped", s.CardsSkipped, false},
		{"comments migrated", s.CommentsMigrated, false},
		{"comments failed", s.CommentsFailed, true},
		{"subtasks migrated", s.SubtasksMigrated, false},
		{"subtasks failed", s.SubtasksFailed, true},
		{"files uploaded", s.FilesUploaded, false},
		{"links added", s.LinksAdded, false},
		{"attachments failed", s.AttachmentsFailed, true},
		{"relations linked", s.RelationsLinked, false},
		{"relations failed", s.RelationsFailed, true},
		{"relations skipped", s.RelationsSkipped, true},
	}
}

// Failures returns the number of items that were not migrated as intended.
func (s *Summary) Failures() int {
	n := 0
	for _, c := range s.Counters() {
		if c.Failure {
			n += c.Value
		}
	}
	return n
}
