package sources

// Defaults returns the built-in list of Utrecht estate agents.
func Defaults() []Source {
	return []Source{
		{
			ID:            "thijssen",
			Title:         "Paul Thijssen makelaars - aanbod",
			URL:           "https://www.thijssenmakelaars.nl/aanbod/woningaanbod/UTRECHT/-400000/koop/2+kamers/",
			EntrySelector: "li.aanbodEntry",
			TitleSelector: ".addressInfo",
			LinkSelector:  "a.aanbodEntryLink",
		},
		{
			ID:    "peekenpompe",
			Title: "Peek&Pompe makelaars - aanbod",
			URL: "https://www.peekenpompe.nl/nl/woningaanbod?ignoreType[]=isBought#{%22view%22:%22grid%22,%22sort%22:%22addedDesc%22," +
				"%22address%22:%22%22,%22title%22:%22%22,%22salesRentals%22:%22sales%22,%22salesPriceMin%22:0,%22salesPriceMax%22:400000," +
				"%22devSalesPriceMin%22:0,%22devSalesPriceMax%22:9999999999,%22rentalsPriceMin%22:0,%22rentalsPriceMax%22:9999999999," +
				"%22devRentalsPriceMin%22:0,%22devRentalsPriceMax%22:9999999999,%22surfaceMin%22:0,%22surfaceMax%22:9999999999," +
				"%22unitsMin%22:0,%22unitsMax%22:9999999999,%22devSurfaceMin%22:0,%22devSurfaceMax%22:9999999999," +
				"%22plotSurfaceMin%22:0,%22plotSurfaceMax%22:9999999999,%22roomsMin%22:2,%22roomsMax%22:9999999999," +
				"%22bedroomsMin%22:0,%22bedroomsMax%22:9999999999,%22bathroomsMin%22:0,%22bathroomsMax%22:9999999999," +
				"%22city%22:[%22Utrecht%22],%22district%22:[],%22mainType%22:[],%22buildType%22:[],%22tag%22:[],%22country%22:[]," +
				"%22state%22:[],%22listingsType%22:[],%22ignoreType%22:[%22isBought%22],%22categories%22:[]," +
				"%22status%22:%22available%22,%22statusStrict%22:false,%22user%22:%22%22,%22branch%22:%22%22," +
				"%22archiveTime%22:15778463,%22page%22:1}",
			EntrySelector: ".card-object",
			TitleSelector: ".card-object-address",
			LinkSelector:  ".card-object-address",
		},
		{
			ID:            "moib",
			Title:         "MOIB makelaars - aanbod",
			URL:           "https://moib.nl/aanbod/",
			EntrySelector: ".horizon",
			TitleSelector: "h3",
			LinkSelector:  "a.overlay-link",
		},
	}
}
