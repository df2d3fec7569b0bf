// Copyright 2026 Tedrolin

package msgconv

import "strings"

// emojiEntry maps one WeChat bracket token to a Unicode glyph.
type emojiEntry struct {
	token string
	glyph string
}

// emojiTable lists every known bracket token. Entries are applied in
// table order, which makes replacement deterministic even where tokens
// overlap. Unknown tokens pass through untouched.
var emojiTable = []emojiEntry{
	{"[OK]", "👌"},
	{"[emm]", "😑"},
	{"[乒乓]", "🏓"},
	{"[亲亲]", "😚"},
	{"[便便]", "💩"},
	{"[偷笑]", "🤭"},
	{"[傲慢]", "😤"},
	{"[再见]", "👋"},
	{"[冷汗]", "😰"},
	{"[凋谢]", "🥀"},
	{"[刀]", "⚔"},
	{"[发]", "🀅"},
	{"[发呆]", "😦"},
	{"[发怒]", "😡"},
	{"[发抖]", "🥶"},
	{"[可怜]", "🥺"},
	{"[可爱]", "😊"},
	{"[右哼哼]", "😤"},
	{"[合十]", "🙏"},
	{"[吐]", "🤮"},
	{"[吐舌]", "😝"},
	{"[吓]", "😱"},
	{"[呲牙]", "😁"},
	{"[咒骂]", "🤬"},
	{"[咖啡]", "☕"},
	{"[哇]", "🤩"},
	{"[哈欠]", "🥱"},
	{"[啤酒]", "🍺"},
	{"[嘘]", "🤫"},
	{"[困]", "😪"},
	{"[坏笑]", "😬"},
	{"[大哭]", "😢"},
	{"[天啊]", "😲"},
	{"[太阳]", "🌞"},
	{"[失望]", "😔"},
	{"[奸笑]", "😼"},
	{"[好的]", "👌"},
	{"[委屈]", "🙁"},
	{"[害羞]", "😊"},
	{"[左哼哼]", "😤"},
	{"[庆祝]", "🎉"},
	{"[强壮]", "💪"},
	{"[得意]", "😎"},
	{"[微笑]", "🙂"},
	{"[心碎]", "💔"},
	{"[快哭了]", "😥"},
	{"[怄火]", "😠"},
	{"[恐惧]", "😱"},
	{"[悠闲]", "🚬"},
	{"[惊恐]", "😨"},
	{"[惊讶]", "😲"},
	{"[憨笑]", "😀"},
	{"[打脸]", "🤕"},
	{"[抓狂]", "😫"},
	{"[折磨]", "😣"},
	{"[抱拳]", "🙏"},
	{"[拥抱]", "🤗"},
	{"[拳头]", "✊"},
	{"[挥手]", "👋"},
	{"[捂脸]", "🤦"},
	{"[握手]", "🤝"},
	{"[撇嘴]", "😟"},
	{"[敲打]", "🤕"},
	{"[无语]", "😒"},
	{"[旺柴]", "🐶"},
	{"[晕]", "😵"},
	{"[月亮]", "🌙"},
	{"[汗]", "😓"},
	{"[流汗]", "😓"},
	{"[流泪]", "😭"},
	{"[炸弹]", "💣"},
	{"[爱你]", "🤟"},
	{"[爱心]", "❤"},
	{"[爱情]", "💑"},
	{"[猪头]", "🐷"},
	{"[献吻]", "😗"},
	{"[玫瑰]", "🌹"},
	{"[瓢虫]", "🐞"},
	{"[白眼]", "🙄"},
	{"[皱眉]", "🥺"},
	{"[睡]", "😪"},
	{"[破涕为笑]", "😂"},
	{"[磕头]", "🙇"},
	{"[示爱]", "👄"},
	{"[礼物]", "🎁"},
	{"[笑脸]", "😄"},
	{"[篮球]", "🏀"},
	{"[糗大了]", "😑"},
	{"[红包]", "🧧"},
	{"[翻白眼]", "🙄"},
	{"[耶]", "✌"},
	{"[胜利]", "✌"},
	{"[脸红]", "😳"},
	{"[色]", "😍"},
	{"[菜刀]", "🔪"},
	{"[街舞]", "💃"},
	{"[衰]", "😢"},
	{"[西瓜]", "🍉"},
	{"[调皮]", "😛"},
	{"[赞]", "👍"},
	{"[足球]", "⚽"},
	{"[踩]", "👎"},
	{"[闪电]", "⚡"},
	{"[闭嘴]", "🤐"},
	{"[阴险]", "😏"},
	{"[难过]", "🙁"},
	{"[飞吻]", "😘"},
	{"[饥饿]", "😋"},
	{"[饭]", "🍚"},
	{"[骷髅]", "💀"},
	{"[鬼魂]", "👻"},
	{"[鼓掌]", "👏"},
	{"[酷]", "😎"},
	{"[让我看看]", "🫣"},
	{"[强]", "👍🏻"},
}

// ReplaceEmoji substitutes every known bracket token in s with its
// Unicode glyph.
func ReplaceEmoji(s string) string {
	for _, e := range emojiTable {
		s = strings.ReplaceAll(s, e.token, e.glyph)
	}
	return s
}
