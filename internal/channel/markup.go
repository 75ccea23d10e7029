package channel

import "strings"

// The relay formats outbound prompts in a small HTML subset — <b>, <i>,
// <code> plus &amp;/&lt;/&gt; entity escapes — which Telegram renders
// natively. The other platforms need it converted to their own markup.

var markdownReplacer = strings.NewReplacer(
	"<b>", "**", "</b>", "**",
	"<i>", "*", "</i>", "*",
	"<code>", "`", "</code>", "`",
)

var mrkdwnReplacer = strings.NewReplacer(
	"<b>", "*", "</b>", "*",
	"<i>", "_", "</i>", "_",
	"<code>", "`", "</code>", "`",
)

var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
)

// MarkdownText converts the relay's HTML subset to Discord Markdown.
// Entities are unescaped after the tags so escaped literals stay literal.
func MarkdownText(s string) string {
	return entityReplacer.Replace(markdownReplacer.Replace(s))
}

// MrkdwnText converts the relay's HTML subset to Slack mrkdwn.
func MrkdwnText(s string) string {
	return entityReplacer.Replace(mrkdwnReplacer.Replace(s))
}
