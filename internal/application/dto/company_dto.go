package dto

// CreateCompanyRequest alta de una empresa emisora.
type CreateCompanyRequest struct {
	Name             string `json:"name"`
	NIF              string `json:"nif"`
	Address          string `json:"address"`
	Email            string `json:"email"`
	VerifactuEnabled bool   `json:"verifactu_enabled"`
	AEATEnvironment  string `json:"aeat_environment"` // "1" producción, "2" pruebas
}

// CompanyResponse empresa expuesta por la API.
type CompanyResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	NIF              string `json:"nif"`
	Address          string `json:"address,omitempty"`
	Email            string `json:"email,omitempty"`
	VerifactuEnabled bool   `json:"verifactu_enabled"`
	AEATEnvironment  string `json:"aeat_environment"`
	Status           string `json:"status"`
}
