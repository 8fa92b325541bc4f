package twoddoc

// Field tables from the ANTS 2D-Doc technical specification v3.1.3,
// section 7.14 (virological tests) and the vaccination extension.

// HeaderFields describe the version 04 header. The DC marker is carried as the
// code of the version field.
var HeaderFields = []Field{
	{Code: "DC", Name: "document_version", MinLen: 2, MaxLen: 2, Type: Digits},
	{Name: "certificate_authority_id", MinLen: 4, MaxLen: 4, Type: Code},
	{Name: "public_key_id", MinLen: 4, MaxLen: 4, Type: Code},
	{Name: "creation_date", MinLen: 4, MaxLen: 4, Type: Code},
	{Name: "signature_date", MinLen: 4, MaxLen: 4, Type: Code},
	{Name: "document_type", MinLen: 2, MaxLen: 2, Type: Code},
	{Name: "document_perimeter", MinLen: 2, MaxLen: 2, Type: Code},
	{Name: "document_country", MinLen: 2, MaxLen: 2, Type: Letters},
}

var TestFields = []Field{
	{Code: "F0", Name: "tested_first_name", MinLen: 0, MaxLen: 60, Type: Alpha},
	{Code: "F1", Name: "tested_last_name", MinLen: 0, MaxLen: 38, Type: Alpha},
	{Code: "F2", Name: "tested_birth_date", MinLen: 8, MaxLen: 8, Type: Date},
	{Code: "F3", Name: "sex", MinLen: 1, MaxLen: 1, Type: Alpha},
	{Code: "F4", Name: "analysis_code", MinLen: 3, MaxLen: 7, Type: AlphaNum},
	{Code: "F5", Name: "analysis_result", MinLen: 1, MaxLen: 1, Type: Alpha},
	{Code: "F6", Name: "analysis_datetime", MinLen: 12, MaxLen: 12, Type: Date},
}

var VaccineFields = []Field{
	{Code: "L0", Name: "vaccinated_last_name", MinLen: 0, MaxLen: 80, Type: Alpha},
	{Code: "L1", Name: "vaccinated_first_name", MinLen: 0, MaxLen: 80, Type: Alpha},
	{Code: "L2", Name: "vaccinated_birth_date", MinLen: 8, MaxLen: 8, Type: Date},
	{Code: "L3", Name: "disease", MinLen: 0, MaxLen: 30, Type: AlphaNum},
	{Code: "L4", Name: "prophylactic_agent", MinLen: 5, MaxLen: 15, Type: AlphaNum},
	{Code: "L5", Name: "vaccine", MinLen: 5, MaxLen: 30, Type: AlphaNum},
	{Code: "L6", Name: "vaccine_maker", MinLen: 5, MaxLen: 30, Type: AlphaNum},
	{Code: "L7", Name: "doses_received", MinLen: 1, MaxLen: 1, Type: Num},
	{Code: "L8", Name: "doses_expected", MinLen: 1, MaxLen: 1, Type: Num},
	{Code: "L9", Name: "last_dose_date", MinLen: 8, MaxLen: 8, Type: Date},
	{Code: "LA", Name: "cycle_state", MinLen: 2, MaxLen: 2, Type: Alpha},
}

const (
	DocumentTypeTest    = "B2"
	DocumentTypeVaccine = "L1"
)
