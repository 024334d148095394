package models

// BlobRef identifies one discovered CSV object in the source container.
// Created by the lister, consumed by the fetcher, discarded after parsing.
type BlobRef struct {
	Name string
}

// SheetTable is one parsed CSV file held as a sheet-to-be: the derived
// sheet name plus the raw rows, header row first, exactly as parsed.
type SheetTable struct {
	SheetName string
	Rows      [][]string
}

// UploadResult describes the uploaded workbook object.
type UploadResult struct {
	ObjectName string
	URL        string
	SheetCount int
}
