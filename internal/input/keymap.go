package input

import "fmt"

// Windows virtual-key codes for keys that are not part of a contiguous run.
// Reference: https://docs.microsoft.com/en-us/windows/win32/inputdev/virtual-key-codes
var namedKeys = map[string]Key{
	"backspace":  0x08,
	"tab":        0x09,
	"enter":      0x0D,
	"shift":      0x10,
	"ctrl":       0x11,
	"alt":        0x12,
	"pause":      0x13,
	"caps":       0x14,
	"esc":        0x1B,
	"space":      0x20,
	"page-up":    0x21,
	"page-down":  0x22,
	"end":        0x23,
	"home":       0x24,
	"left":       0x25,
	"up":         0x26,
	"right":      0x27,
	"down":       0x28,
	"select":     0x29,
	"print":      0x2A,
	"execute":    0x2B,
	"prtscn":     0x2C,
	"insert":     0x2D,
	"delete":     0x2E,
	"win":        0x5B, // left windows key
	"vol-mute":   0xAD,
	"vol-down":   0xAE,
	"vol-up":     0xAF,
	"media-next": 0xB0,
	"media-prev": 0xB1,
	"media-stop": 0xB2,
	"media_pp":   0xB3, // VK_MEDIA_PLAY_PAUSE
}

// keyTable maps key names to virtual-key codes. Built once at startup and
// read-only afterwards.
var keyTable = buildKeyTable()

func buildKeyTable() map[string]Key {
	m := make(map[string]Key, 128)
	addKeyRun(m, "0123456789", 0x30)
	addKeyRun(m, "abcdefghijklmnopqrstuvwxyz", 0x41)
	// Upper-case letters share the VK of their lower-case counterpart;
	// virtual keys carry no case without a shift modifier.
	addKeyRun(m, "ABCDEFGHIJKLMNOPQRSTUVWXYZ", 0x41)
	for i := 0; i < 24; i++ {
		m[fmt.Sprintf("F%d", i+1)] = Key(0x70 + i)
	}
	for name, k := range namedKeys {
		m[name] = k
	}
	return m
}

// addKeyRun maps each character of keys to consecutive codes from start.
func addKeyRun(m map[string]Key, keys string, start int) {
	for i, r := range keys {
		m[string(r)] = Key(start + i)
	}
}

// LookupKey resolves a key name against the shared key table.
func LookupKey(name string) (Key, bool) {
	k, ok := keyTable[name]
	return k, ok
}
