package trafikverket

// Wire types for the occasion-bundles endpoint.

type occasionBundlesRequest struct {
	BookingSession      bookingSession      `json:"bookingSession"`
	OccasionBundleQuery occasionBundleQuery `json:"occasionBundleQuery"`
}

type bookingSession struct {
	SocialSecurityNumber         string  `json:"socialSecurityNumber"`
	LicenceID                    int     `json:"licenceId"`
	BookingModeID                int     `json:"bookingModeId"`
	IgnoreDebt                   bool    `json:"ignoreDebt"`
	IgnoreBookingHindrance       bool    `json:"ignoreBookingHindrance"`
	ExaminationTypeID            int     `json:"examinationTypeId"`
	ExcludeExaminationCategories []int   `json:"excludeExaminationCategories"`
	RescheduleTypeID             int     `json:"rescheduleTypeId"`
	PaymentIsActive              bool    `json:"paymentIsActive"`
	PaymentReference             *string `json:"paymentReference"`
	PaymentURL                   *string `json:"paymentUrl"`
	SearchedMonths               int     `json:"searchedMonths"`
}

type occasionBundleQuery struct {
	StartDate         string `json:"startDate"`
	SearchedMonths    int    `json:"searchedMonths"`
	LocationID        int    `json:"locationId"`
	NearbyLocationIDs []int  `json:"nearbyLocationIds"`
	LanguageID        int    `json:"languageId"`
	VehicleTypeID     int    `json:"vehicleTypeId"`
	TachographTypeID  int    `json:"tachographTypeId"`
	OccasionChoiceID  int    `json:"occasionChoiceId"`
	ExaminationTypeID int    `json:"examinationTypeId"`
}

type occasionBundlesResponse struct {
	Status int `json:"status"`
	Data   struct {
		Bundles []occasionBundle `json:"bundles"`
	} `json:"data"`
}

type occasionBundle struct {
	Occasions []occasion `json:"occasions"`
}

type occasion struct {
	Date         string `json:"date"`
	Time         string `json:"time"`
	LocationName string `json:"locationName"`
	Cost         string `json:"cost"`
	Name         string `json:"name"`
}
