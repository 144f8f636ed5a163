package models

// Границы значений совпадают с типами колонок в миграциях.
const (
	MaxEmailLength      = 255
	MaxNameLength       = 255
	MaxGroupLength      = 64
	MaxCourseCodeLength = 32
	MaxSemesterLength   = 32
	MaxTitleLength      = 255
	MaxFileNameLength   = 255

	MaxCredits = 999.9     // NUMERIC(4,1)
	MaxScore   = 999999.99 // NUMERIC(8,2)
	MaxWeight  = 999.999   // NUMERIC(6,3)
)
