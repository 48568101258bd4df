package types

// AccessType classifies how a file was touched.
type AccessType string

const (
	AccessRead  AccessType = "read"  // AccessRead is a read without modification.
	AccessEdit  AccessType = "edit"  // AccessEdit is a partial modification of an existing file.
	AccessWrite AccessType = "write" // AccessWrite is a full write or creation.
)

// AccessSource identifies who touched the file.
type AccessSource string

const (
	SourceAgent AccessSource = "agent" // SourceAgent marks accesses performed by the AI agent.
	SourceUser  AccessSource = "user"  // SourceUser marks accesses performed directly by the user.
)
