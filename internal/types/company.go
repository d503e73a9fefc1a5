package types

// CompanyInfo is the public-facing business information used by the
// mechanic agent and by outbound notifications.
type CompanyInfo struct {
  Name                    string
  Mission                 string
  LagosHeadOfficeAddress  string
  EdoBranchAddress        string
  MainPhone               string
  MainEmail               string
  SupportPhone            string
  SupportEmail            string
  ServiceOverview         string
}

func DefaultCompanyInfo() CompanyInfo {
  return CompanyInfo{
    Name:                   "Everything Automotive",
    Mission:                "To be the leading provider of quality automotive parts and services in Nigeria, leveraging technology and expertise.",
    LagosHeadOfficeAddress: "5 Adejuwon Street, Ikotun, Lagos State Nigeria",
    EdoBranchAddress:       "4 Harrison Street, Idokpa Quarters, Edo State, Nigeria",
    MainPhone:              "+2348138900104",
    MainEmail:              "esekiegabriel@gmail.com",
    SupportPhone:           "+2347025631853",
    SupportEmail:           "helpassist121@gmail.com",
    ServiceOverview:        "We offer a wide range of automotive services including routine maintenance, complex repairs, diagnostics, tire services, body work, HVAC, and electrical repairs. We also provide a marketplace for vehicle parts and vehicles.",
  }
}
