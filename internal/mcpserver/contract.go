package mcpserver

// RecordFormatContract describes the Goal and Milestone records and the
// rules the tools enforce, for LLM consumers.
const RecordFormatContract = `# Waypoint Record Format

Waypoint stores two kinds of records: goals and milestones. Every tool
returns records as JSON.

## Goal

` + "```" + `json
{
  "owner": "principal-of-the-creator",
  "id": "3f0c9a52-...",
  "title": "Learn Go",
  "description": "Work through the tour and a book",
  "start_date": "2024-01-01",
  "target_date": "2024-12-31",
  "progress": 0,
  "milestones": [],
  "created_at": 1704067200000000000,
  "updated_at": 1704067300000000000
}
` + "```" + `

- ` + "`" + `owner` + "`" + ` is set from the caller on creation and never changes.
- ` + "`" + `milestones` + "`" + ` holds copies taken when a milestone is inserted. Later edits to
  the milestone are not reflected in the copy. The same milestone may appear twice.
- ` + "`" + `progress` + "`" + ` is a fraction between 0 and 1 and starts at 0.
- Timestamps are nanoseconds since the Unix epoch. ` + "`" + `updated_at` + "`" + ` is absent until
  the first change.

## Milestone

` + "```" + `json
{
  "id": "9b1e...",
  "goal_id": "3f0c9a52-...",
  "title": "Chapter 1",
  "description": "Read and do the exercises",
  "target_date": "2024-02-01",
  "is_completed": false,
  "created_at": 1704067200000000000
}
` + "```" + `

- ` + "`" + `goal_id` + "`" + ` is not checked against existing goals.
- Milestones carry no owner.

## Rules

1. Creating a goal requires title, description, start_date and target_date.
2. Creating a milestone requires goal_id, title, description and target_date.
3. Updates change only the fields you pass; empty fields keep their value.
4. Only the owner may get, update or delete a goal, or change its milestones.
5. Searches match title or description, ignoring case. Empty text matches all.
6. Dates are free-form text and are not parsed.

## Errors

Tool errors start with a kind tag: ` + "`" + `validation_error` + "`" + `, ` + "`" + `not_found` + "`" + `,
` + "`" + `unauthorized` + "`" + ` or ` + "`" + `internal` + "`" + `, followed by a message.
`
