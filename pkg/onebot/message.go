package onebot

// Segment is one element of an array-format OneBot message. The data map
// keys depend on the segment type: "text" carries text, "image" carries
// file/url, "at" carries qq.
type Segment struct {
	Type string            `json:"type"`
	Data map[string]string `json:"data"`
}

// Text builds a plain-text segment.
func Text(text string) Segment {
	return Segment{Type: "text", Data: map[string]string{"text": text}}
}

// At builds an @-mention segment. qq may be a user id or "all".
func At(qq string) Segment {
	return Segment{Type: "at", Data: map[string]string{"qq": qq}}
}

// Image builds an image segment from a file name or URL.
func Image(file string) Segment {
	return Segment{Type: "image", Data: map[string]string{"file": file}}
}

// Record builds a voice-record segment.
func Record(file string) Segment {
	return Segment{Type: "record", Data: map[string]string{"file": file}}
}

// Face builds a builtin-emoji segment.
func Face(id string) Segment {
	return Segment{Type: "face", Data: map[string]string{"id": id}}
}

// Reply builds a reply-to segment referencing a message id.
func Reply(id string) Segment {
	return Segment{Type: "reply", Data: map[string]string{"id": id}}
}
