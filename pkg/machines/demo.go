package machines

// DemoRecords is the built-in fleet used when no catalog source is configured.
func DemoRecords() []Record {
	return []Record{
		{
			ID:              "M01",
			Name:            "Harwester 1",
			Model:           "Ponsse Ergo",
			SerialNumber:    "H-001",
			ManufactureYear: 2021,
			OperatorName:    "Jan Kowalski",
			Position:        Position{Lat: 51.5305, Lng: 16.8925},
			Status:          StatusWorking,
		},
		{
			ID:              "M02",
			Name:            "Forwarder 2",
			Model:           "John Deere 1210G",
			SerialNumber:    "F-002",
			ManufactureYear: 2019,
			OperatorName:    "Anna Nowak",
			Position:        Position{Lat: 51.5340, Lng: 16.8910},
			Status:          StatusIdle,
		},
		{
			ID:              "M03",
			Name:            "Harwester 3",
			Model:           "Komatsu 931XC",
			SerialNumber:    "H-003",
			ManufactureYear: 2022,
			OperatorName:    "Paweł Zieliński",
			Position:        Position{Lat: 51.5321, Lng: 16.8895},
			Status:          StatusFault,
		},
	}
}
