/*
Package types holds the small set of identifiers (XID, Version,
ParticipantID) that every other dstore package needs and that would
otherwise force pkg/object and pkg/manager to import each other.
*/
package types
