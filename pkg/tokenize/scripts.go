package tokenize

import (
	"strings"
	"unicode"
)

// scriptNames maps ISO 15924 codes to the names used by [unicode.Scripts].
// Letters of two different scripts in this table are separated into distinct
// tokens even when they are written without a space between them.
var scriptNames = [...]struct{ code, name string }{
	{"Adlm", "Adlam"}, {"Aghb", "Caucasian_Albanian"}, {"Ahom", "Ahom"},
	{"Arab", "Arabic"}, {"Armi", "Imperial_Aramaic"}, {"Armn", "Armenian"},
	{"Avst", "Avestan"}, {"Bali", "Balinese"}, {"Bamu", "Bamum"},
	{"Bass", "Bassa_Vah"}, {"Batk", "Batak"}, {"Beng", "Bengali"},
	{"Bhks", "Bhaiksuki"}, {"Bopo", "Bopomofo"}, {"Brah", "Brahmi"},
	{"Brai", "Braille"}, {"Bugi", "Buginese"}, {"Buhd", "Buhid"},
	{"Cakm", "Chakma"}, {"Cans", "Canadian_Aboriginal"}, {"Cari", "Carian"},
	{"Cham", "Cham"}, {"Cher", "Cherokee"}, {"Chrs", "Chorasmian"},
	{"Copt", "Coptic"}, {"Cpmn", "Cypro_Minoan"}, {"Cprt", "Cypriot"},
	{"Cyrl", "Cyrillic"}, {"Deva", "Devanagari"}, {"Diak", "Dives_Akuru"},
	{"Dogr", "Dogra"}, {"Dsrt", "Deseret"}, {"Dupl", "Duployan"},
	{"Egyp", "Egyptian_Hieroglyphs"}, {"Elba", "Elbasan"}, {"Elym", "Elymaic"},
	{"Ethi", "Ethiopic"}, {"Geor", "Georgian"}, {"Glag", "Glagolitic"},
	{"Gong", "Gunjala_Gondi"}, {"Gonm", "Masaram_Gondi"}, {"Goth", "Gothic"},
	{"Gran", "Grantha"}, {"Grek", "Greek"}, {"Gujr", "Gujarati"},
	{"Guru", "Gurmukhi"}, {"Hang", "Hangul"}, {"Hani", "Han"},
	{"Hano", "Hanunoo"}, {"Hatr", "Hatran"}, {"Hebr", "Hebrew"},
	{"Hira", "Hiragana"}, {"Hluw", "Anatolian_Hieroglyphs"}, {"Hmng", "Pahawh_Hmong"},
	{"Hmnp", "Nyiakeng_Puachue_Hmong"}, {"Hung", "Old_Hungarian"}, {"Ital", "Old_Italic"},
	{"Java", "Javanese"}, {"Kali", "Kayah_Li"}, {"Kana", "Katakana"},
	{"Kawi", "Kawi"}, {"Khar", "Kharoshthi"}, {"Khmr", "Khmer"},
	{"Khoj", "Khojki"}, {"Kits", "Khitan_Small_Script"}, {"Knda", "Kannada"},
	{"Kthi", "Kaithi"}, {"Lana", "Tai_Tham"}, {"Laoo", "Lao"},
	{"Latn", "Latin"}, {"Lepc", "Lepcha"}, {"Limb", "Limbu"},
	{"Lina", "Linear_A"}, {"Linb", "Linear_B"}, {"Lisu", "Lisu"},
	{"Lyci", "Lycian"}, {"Lydi", "Lydian"}, {"Mahj", "Mahajani"},
	{"Maka", "Makasar"}, {"Mand", "Mandaic"}, {"Mani", "Manichaean"},
	{"Marc", "Marchen"}, {"Medf", "Medefaidrin"}, {"Mend", "Mende_Kikakui"},
	{"Merc", "Meroitic_Cursive"}, {"Mero", "Meroitic_Hieroglyphs"}, {"Mlym", "Malayalam"},
	{"Modi", "Modi"}, {"Mong", "Mongolian"}, {"Mroo", "Mro"},
	{"Mtei", "Meetei_Mayek"}, {"Mult", "Multani"}, {"Mymr", "Myanmar"},
	{"Nagm", "Nag_Mundari"}, {"Nand", "Nandinagari"}, {"Narb", "Old_North_Arabian"},
	{"Nbat", "Nabataean"}, {"Newa", "Newa"}, {"Nkoo", "Nko"},
	{"Nshu", "Nushu"}, {"Ogam", "Ogham"}, {"Olck", "Ol_Chiki"},
	{"Orkh", "Old_Turkic"}, {"Orya", "Oriya"}, {"Osge", "Osage"},
	{"Osma", "Osmanya"}, {"Ougr", "Old_Uyghur"}, {"Palm", "Palmyrene"},
	{"Pauc", "Pau_Cin_Hau"}, {"Perm", "Old_Permic"}, {"Phag", "Phags_Pa"},
	{"Phli", "Inscriptional_Pahlavi"}, {"Phlp", "Psalter_Pahlavi"}, {"Phnx", "Phoenician"},
	{"Plrd", "Miao"}, {"Prti", "Inscriptional_Parthian"}, {"Rjng", "Rejang"},
	{"Rohg", "Hanifi_Rohingya"}, {"Runr", "Runic"}, {"Samr", "Samaritan"},
	{"Sarb", "Old_South_Arabian"}, {"Saur", "Saurashtra"}, {"Sgnw", "SignWriting"},
	{"Shaw", "Shavian"}, {"Shrd", "Sharada"}, {"Sidd", "Siddham"},
	{"Sind", "Khudawadi"}, {"Sinh", "Sinhala"}, {"Sogd", "Sogdian"},
	{"Sogo", "Old_Sogdian"}, {"Sora", "Sora_Sompeng"}, {"Soyo", "Soyombo"},
	{"Sund", "Sundanese"}, {"Sylo", "Syloti_Nagri"}, {"Syrc", "Syriac"},
	{"Tagb", "Tagbanwa"}, {"Takr", "Takri"}, {"Tale", "Tai_Le"},
	{"Talu", "New_Tai_Lue"}, {"Taml", "Tamil"}, {"Tang", "Tangut"},
	{"Tavt", "Tai_Viet"}, {"Telu", "Telugu"}, {"Tfng", "Tifinagh"},
	{"Tglg", "Tagalog"}, {"Thaa", "Thaana"}, {"Thai", "Thai"},
	{"Tibt", "Tibetan"}, {"Tirh", "Tirhuta"}, {"Tnsa", "Tangsa"},
	{"Toto", "Toto"}, {"Ugar", "Ugaritic"}, {"Vaii", "Vai"},
	{"Vith", "Vithkuqi"}, {"Wara", "Warang_Citi"}, {"Wcho", "Wancho"},
	{"Xpeo", "Old_Persian"}, {"Xsux", "Cuneiform"}, {"Yezi", "Yezidi"},
	{"Yiii", "Yi"}, {"Zanb", "Zanabazar_Square"},
}

// noSpaceCodes lists the scripts that do not separate words with spaces.
// Characters of these scripts become single-character tokens unless a
// segmenter is configured for the language.
var noSpaceCodes = [...]string{
	"Egyp", "Hani", "Hira", "Hluw", "Lina", "Linb", "Xsux", "Kana", "Khmr",
	"Laoo", "Mymr", "Phag", "Lana", "Thai", "Tibt",
}

type script struct {
	code    string
	table   *unicode.RangeTable
	noSpace bool
}

// scripts holds the entries of scriptNames known to the unicode package,
// in table order. Scripts missing from the running Go version are skipped.
var scripts = buildScripts()

func buildScripts() []script {
	noSpace := make(map[string]bool, len(noSpaceCodes))
	for _, c := range noSpaceCodes {
		noSpace[c] = true
	}
	out := make([]script, 0, len(scriptNames))
	for _, s := range scriptNames {
		table, ok := unicode.Scripts[s.name]
		if !ok || table == nil {
			continue
		}
		out = append(out, script{code: s.code, table: table, noSpace: noSpace[s.code]})
	}
	return out
}

// scriptOf returns the index into scripts of the script r belongs to, or -1.
func scriptOf(r rune) int {
	if r < 0x80 {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') {
			return latinIndex
		}
		return -1
	}
	for i := range scripts {
		if unicode.Is(scripts[i].table, r) {
			return i
		}
	}
	return -1
}

var latinIndex = func() int {
	for i, s := range scripts {
		if s.code == "Latn" {
			return i
		}
	}
	return -1
}()

// isNoSpace reports whether r belongs to a script written without spaces.
func isNoSpace(r rune) bool {
	i := scriptOf(r)
	return i >= 0 && scripts[i].noSpace
}

// hasNoSpace reports whether s contains a rune of a script written without
// spaces.
func hasNoSpace(s string) bool {
	return strings.ContainsFunc(s, isNoSpace)
}

// splitNoSpace surrounds every rune of a no-space script with spaces.
func splitNoSpace(s string) string {
	if !hasNoSpace(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) * 2)
	for _, r := range s {
		if isNoSpace(r) {
			b.WriteByte(' ')
			b.WriteRune(r)
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// splitScripts inserts a space between two adjacent letters of different
// scripts, and between a letter of a no-space script and an ASCII digit in
// either order.
func splitScripts(s string) string {
	return splitScriptsWith(s, false)
}

// splitSegmented is like [splitScripts] for a word returned by a segmenter.
// Letters of two no-space scripts stay together, so mixed words such as
// 食べる (Han and Hiragana) are kept whole.
func splitSegmented(s string) string {
	return splitScriptsWith(s, true)
}

func splitScriptsWith(s string, keepNoSpace bool) string {
	var (
		b       strings.Builder
		prev    rune = -1
		prevScr      = -1
	)
	b.Grow(len(s))
	for _, r := range s {
		scr := -1
		if unicode.IsLetter(r) {
			scr = scriptOf(r)
		}
		if prev >= 0 && scriptBoundary(prev, prevScr, r, scr) &&
			!(keepNoSpace && bothNoSpace(prevScr, scr)) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
		prev, prevScr = r, scr
	}
	return b.String()
}

func scriptBoundary(a rune, aScr int, b rune, bScr int) bool {
	aLetter := unicode.IsLetter(a)
	bLetter := unicode.IsLetter(b)
	switch {
	case aLetter && bLetter:
		return aScr >= 0 && aScr != bScr
	case aLetter && isASCIIDigit(b):
		return aScr >= 0 && scripts[aScr].noSpace
	case isASCIIDigit(a) && bLetter:
		return bScr >= 0 && scripts[bScr].noSpace
	}
	return false
}

func bothNoSpace(a, b int) bool {
	return a >= 0 && b >= 0 && scripts[a].noSpace && scripts[b].noSpace
}

func isASCIIDigit(r rune) bool {
	return '0' <= r && r <= '9'
}
