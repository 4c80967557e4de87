package mcpserver

// WorkflowContract describes the categories and transition rules LLM
// consumers should follow when driving the board.
const WorkflowContract = `# Photoboard Workflow Contract

Every photo lives in exactly one category. Its file sits in the directory
named after that category.

## Categories

| Category   | Reachable via                  | Leaves via                    |
|------------|--------------------------------|-------------------------------|
| ` + "`todo`" + `     | upload, move                   | move, archive                 |
| ` + "`doing`" + `    | move                           | move, archive                 |
| ` + "`done`" + `     | move                           | move, archive                 |
| ` + "`archived`" + ` | archive only                   | never (terminal)              |

## Rules

1. **Move** (` + "`move_photo`" + `) accepts only ` + "`todo`" + `, ` + "`doing`" + ` or ` + "`done`" + ` as the target.
   The photo is appended to the end of the target column and ` + "`moved_at`" + ` is set.
   Moving to the column a photo is already in still re-appends it.
2. **Archive** (` + "`archive_photo`" + `) is the only way into ` + "`archived`" + `. It sets ` + "`archived_at`" + `.
   Archiving an archived photo is a no-op. Archived photos cannot be moved.
3. **Upload** (` + "`ingest_photo`" + `) always lands in ` + "`todo`" + `, newest first. A batch keeps its
   upload order as a block at the top of the column.
4. **Ids** are opaque strings. File names are ` + "`<generated-id>.<ext>`" + ` and never reuse the
   original name.
5. **URLs** follow ` + "`/static/uploads/<category>/<filename>`" + ` and change on every move.
   Do not cache them across transitions.
6. **Consistency**: if a file is missing during a move the record still moves and
   the gap shows up in ` + "`audit_catalog`" + ` and ` + "`photo_history`" + ` (` + "`relocated: false`" + `).

## Accepted uploads

- Extensions: png, jpg, jpeg, gif, webp (case-insensitive).
- The payload must match its extension.
- Size is capped by the server's upload limit (16 MiB by default).
`
