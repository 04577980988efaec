package cache

// Class-wide tags enabling bulk invalidation of every entry in a semantic
// class.
const (
	// TagSubjectInfo groups every per-subject authorization entry.
	TagSubjectInfo = "subject-info"
	// TagAdminExists groups the admin-existence entry.
	TagAdminExists = "admin-exists"
)

// AdminExistsKey identifies the cached "does at least one admin exist" fact.
const AdminExistsKey = "admin-exists"

// SubjectInfoKey derives the cache key for a subject's authorization facts.
func SubjectInfoKey(subjectID string) string {
	return "subject-info:" + subjectID
}

// SubjectTag derives the per-subject tag carried by every entry about one
// subject, alongside the class-wide TagSubjectInfo.
func SubjectTag(subjectID string) string {
	return "subject-info:" + subjectID
}

// SubjectTags returns the full tag set for a subject-info entry.
func SubjectTags(subjectID string) []string {
	return []string{SubjectTag(subjectID), TagSubjectInfo}
}
