package entdriver

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Column names of the ideas table.
const (
	ColumnID          = "id"
	ColumnAgent       = "agent"
	ColumnModel       = "model"
	ColumnPrompt      = "prompt"
	ColumnText        = "text"
	ColumnFragments   = "fragments"
	ColumnSubject     = "subject"
	ColumnStartedAt   = "started_at"
	ColumnCompletedAt = "completed_at"
)

// columns lists the ideas columns in scan order.
var columns = []string{
	ColumnID,
	ColumnAgent,
	ColumnModel,
	ColumnPrompt,
	ColumnText,
	ColumnFragments,
	ColumnSubject,
	ColumnStartedAt,
	ColumnCompletedAt,
}

var (
	// IdeasColumns holds the columns for the "ideas" table.
	IdeasColumns = []*schema.Column{
		{Name: ColumnID, Type: field.TypeString, Unique: true},
		{Name: ColumnAgent, Type: field.TypeString},
		{Name: ColumnModel, Type: field.TypeString},
		{Name: ColumnPrompt, Type: field.TypeString, Size: 2147483647},
		{Name: ColumnText, Type: field.TypeString, Size: 2147483647},
		{Name: ColumnFragments, Type: field.TypeInt},
		{Name: ColumnSubject, Type: field.TypeString, Default: ""},
		{Name: ColumnStartedAt, Type: field.TypeTime},
		{Name: ColumnCompletedAt, Type: field.TypeTime},
	}
	// IdeasTable holds the schema information for the "ideas" table.
	IdeasTable = &schema.Table{
		Name:       "ideas",
		Columns:    IdeasColumns,
		PrimaryKey: []*schema.Column{IdeasColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "idea_completed_at",
				Unique:  false,
				Columns: []*schema.Column{IdeasColumns[8]},
			},
		},
	}
)
