package yamlh

// TagId is a stable small integer standing for a tag URI. Reserved ids cover
// the YAML core schema plus the native numeric widths; all other URIs are
// assigned ids on first registration.
type TagId int32

const (
	TagQuestion    TagId = iota // "?": unknown / implicit
	TagExclamation              // "!": non-specific
	TagString
	TagBoolean
	TagNull
	TagInteger
	TagFloat
	TagSequence
	TagMapping
	TagNilString // sentinel: a null value in string position
	TagNilSeq    // sentinel: a null value in sequence position

	TagInt8
	TagInt16
	TagInt32
	TagInt64
	TagUint8
	TagUint16
	TagUint32
	TagUint64
	TagFloat32
	TagFloat64

	firstCustomTag
)

const (
	// CoreTagPrefix is the URI prefix the "!!" handle expands to.
	CoreTagPrefix = "tag:yaml.org,2002:"

	NullURI      = CoreTagPrefix + "null"
	BoolURI      = CoreTagPrefix + "bool"
	StrURI       = CoreTagPrefix + "str"
	IntURI       = CoreTagPrefix + "int"
	FloatURI     = CoreTagPrefix + "float"
	SeqURI       = CoreTagPrefix + "seq"
	MapURI       = CoreTagPrefix + "map"
	NilStringURI = "!go:nil:string"
	NilSeqURI    = "!go:nil:seq"
)

var reservedURIs = map[TagId]string{
	TagQuestion:    "?",
	TagExclamation: "!",
	TagString:      StrURI,
	TagBoolean:     BoolURI,
	TagNull:        NullURI,
	TagInteger:     IntURI,
	TagFloat:       FloatURI,
	TagSequence:    SeqURI,
	TagMapping:     MapURI,
	TagNilString:   NilStringURI,
	TagNilSeq:      NilSeqURI,
	TagInt8:        "!go:int8",
	TagInt16:       "!go:int16",
	TagInt32:       "!go:int32",
	TagInt64:       "!go:int64",
	TagUint8:       "!go:uint8",
	TagUint16:      "!go:uint16",
	TagUint32:      "!go:uint32",
	TagUint64:      "!go:uint64",
	TagFloat32:     "!go:float32",
	TagFloat64:     "!go:float64",
}

// TagRegistry is a bidirectional mapping between tag URIs and tag ids.
// Registration is idempotent. A registry is not safe for concurrent mutation;
// hold one per flow of control or guard it externally.
type TagRegistry struct {
	uris []string
	ids  map[string]TagId
}

func NewTagRegistry() *TagRegistry {
	r := &TagRegistry{
		uris: make([]string, firstCustomTag),
		ids:  make(map[string]TagId, len(reservedURIs)),
	}
	for id, uri := range reservedURIs {
		r.uris[id] = uri
		r.ids[uri] = id
	}
	return r
}

// RegisterURI returns the id bound to uri, assigning a fresh one on first
// sight.
func (r *TagRegistry) RegisterURI(uri string) TagId {
	if id, ok := r.ids[uri]; ok {
		return id
	}
	id := TagId(len(r.uris))
	r.uris = append(r.uris, uri)
	r.ids[uri] = id
	return id
}

// Lookup reports the id bound to uri, if any.
func (r *TagRegistry) Lookup(uri string) (TagId, bool) {
	id, ok := r.ids[uri]
	return id, ok
}

// URI returns the tag URI bound to id. Unknown ids yield the empty string.
func (r *TagRegistry) URI(id TagId) string {
	if id < 0 || int(id) >= len(r.uris) {
		return ""
	}
	return r.uris[id]
}
