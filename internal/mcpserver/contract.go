package mcpserver

// CardFormatContract describes how liblearn turns documented routines into
// flash cards, so LLM consumers can interpret build_deck output.
const CardFormatContract = `# liblearn Card Format

A deck is built for one **class or module**, addressed by a dotted path
(` + "`" + `json` + "`" + `, ` + "`" + `os.path` + "`" + `, ` + "`" + `net/http.Client` + "`" + `). Routines and other values are rejected.

## Cards

Each card has two fields:

` + "```" + `json
{"prompt": "calc.Calculator.add(a, b)", "answer": "Adds two numbers."}
` + "```" + `

- **prompt** is the qualified routine name followed by its signature.
- **answer** is the routine documentation. Short decks keep only the first
  paragraph (the synopsis); full decks keep everything after the signature.
- Prompts are unique within a deck. Card order is the member order (sorted by
  name) unless the deck was shuffled.

## Signatures

1. The live signature is used when introspection can produce it.
2. Otherwise a documentation header of the form ` + "`" + `name(args)` + "`" + ` supplies it and is
   removed from the answer.
3. Otherwise the routine is dropped, or, with the placeholder policy, rendered
   with ` + "`" + `(...)` + "`" + `.

## Eligibility

- Deprecated routines are never eligible.
- Special routines (` + "`" + `__init__` + "`" + `, ` + "`" + `String` + "`" + `) and private routines (` + "`" + `_helper` + "`" + `, ` + "`" + `helper` + "`" + `
  in Go) are excluded unless requested.
- Routines without documentation count as eligible but produce no card.

## Quality

` + "`" + `quality = cards / eligible * 100` + "`" + `. A batch records ` + "`" + `-100` + "`" + ` for targets that could
not be built.
`
