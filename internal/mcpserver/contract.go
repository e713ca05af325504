package mcpserver

// MemoryFormatContract describes the canonical memory shape that LLM
// consumers should follow when creating or updating memories.
const MemoryFormatContract = `# Keepsake Memory Format Contract

A memory is one dated journal entry about the child.

## Fields

- ` + "`" + `capture_date` + "`" + ` (REQUIRED): the day the moment happened, ISO format ` + "`" + `YYYY-MM-DD` + "`" + `.
  This is the date the photos were taken, not the date the entry is written.
- ` + "`" + `mood` + "`" + ` (REQUIRED): exactly one of ` + "`" + `happy` + "`" + `, ` + "`" + `sleepy` + "`" + `, ` + "`" + `playful` + "`" + `,
  ` + "`" + `fussy` + "`" + `, ` + "`" + `curious` + "`" + `, ` + "`" + `milestone` + "`" + `. Any other value is rejected.
- ` + "`" + `note` + "`" + ` (OPTIONAL): free text describing the moment. Plain prose, first
  person is fine ("Her first time at the beach...").

## Rules

1. **The age label is derived, never supplied.** Keepsake computes it from the
   child's birth date and the capture date at save time. Do not put the age in
   the note.
2. **Photos are attached through the web UI.** Tools here create and edit the
   text side of a memory only.
3. **Dates are local calendar dates.** No time component, no timezone suffix.
4. **Keep notes short.** One or two sentences; the photos carry the memory.

## Example

` + "```" + `json
{
  "capture_date": "2024-06-15",
  "mood": "happy",
  "note": "First time with her toes in the sand. She was not sure about it."
}
` + "```" + `
`
