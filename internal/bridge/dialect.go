package bridge

// Dialect describes the markdown dialect accepted by WriteMarkdown and
// returned by ReadMarkdown. Hosts should read it before writing content.
const Dialect = `# Markdown Dialect

Documents are plain Markdown with a few extensions. Anything outside this
list is kept as text.

## Blocks

- Headings: ` + "`# `" + ` through ` + "`###### `" + ` followed by the heading text.
- Paragraphs are separated by a blank line. A single newline inside a
  paragraph is a line break.
- Bullet lists: ` + "`- item`" + `.
- Numbered lists: ` + "`1. item`" + `. The first number is the start of the list.
- Lettered lists: ` + "`a. item`" + `. The first letter is the start of the list.
- A change of list marker starts a new list.
- Display math: a line ` + "`$$latex$$`" + `.

## Inline

- Bold: ` + "`**text**`" + `. Italic: ` + "`*text*`" + `. Bold italic: ` + "`***text***`" + `.
- Inline math: ` + "`$latex$`" + `.
- Colored text is kept as an HTML island:
  ` + "`<span style=\"color: #1e3a8a\">text</span>`" + `.

## Images

` + "```" + `
![alt text](./images/photo_20250101_120000.png){width=320px height=240px id=...}
` + "```" + `

- The brace block is optional and its keys may appear in any order.
- width and height are kept verbatim (px or %).
- id links the image to its stored payload. Leave it out for new images.
- In document data, images are referenced as ` + "`./images/<filename>`" + ` and
  the payload travels in the images list as base64.
- An image on its own line is shown as a separate block.

## Cleanup on write

- Single asterisks that do not form bold or italic are removed.
- Three or more consecutive newlines collapse to a blank line.
- Leading and trailing whitespace is trimmed.
`
