package service

import "errors"

var (
	// ErrAssignmentNotFound indicates the assignment does not exist or is not visible to the caller.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrStudentNotFound indicates the student does not exist or belongs to another teacher.
	ErrStudentNotFound = errors.New("student not found")
	// ErrUserNotFound indicates the account no longer exists.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidDueDate indicates a due date that is not in the future.
	ErrInvalidDueDate = errors.New("due date must be in the future")
	// ErrInvalidAssignment indicates kind-specific fields are missing or misplaced.
	ErrInvalidAssignment = errors.New("invalid assignment")
	// ErrInvalidTeacherCode indicates no teacher owns the supplied code.
	ErrInvalidTeacherCode = errors.New("invalid teacher code")
	// ErrEmailTaken indicates an account already uses the email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials indicates a failed login.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrReauthenticationFailed indicates the password confirmation did not match.
	ErrReauthenticationFailed = errors.New("password confirmation failed")
	// ErrEmptyExamSession indicates every subject row of a session was zero.
	ErrEmptyExamSession = errors.New("at least one subject needs a non-zero score")
	// ErrInvalidExamDate indicates an exam date outside the YYYY-MM-DD layout.
	ErrInvalidExamDate = errors.New("invalid exam date")
	// ErrExamSessionNotFound indicates no rows exist for the student and date.
	ErrExamSessionNotFound = errors.New("trial exam session not found")
	// ErrInvalidFilter indicates a list filter could not be parsed.
	ErrInvalidFilter = errors.New("invalid filter")
)
