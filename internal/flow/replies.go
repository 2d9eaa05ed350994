package flow

// Suggested-reply sets per situation, mirroring what the transport renders
// as keyboards.

func mainMenuReplies(isSubscribed bool) []string {
	replies := []string{menuContent}
	if isSubscribed {
		replies = append(replies, menuStats, menuDiscount)
	} else {
		replies = append(replies, menuRenew, menuDiscount)
	}
	return append(replies, menuHelp, menuInvite)
}

func contentKindReplies() []string {
	return []string{kindCaptionButton, kindReelsButton, kindVisualButton, kindCalendarButton, tokenBack}
}

func backReplies() []string { return []string{tokenBack} }

func skipReplies() []string { return []string{tokenSkip, tokenBack} }

func yesNoReplies() []string { return []string{tokenYes, tokenNo, tokenBack} }

func continueReplies() []string { return []string{tokenContinue, tokenBack} }

func startReplies() []string { return []string{tokenReady} }

func confirmReplies() []string { return []string{cbConfirmYes, cbConfirmNo} }

func paymentReplies() []string { return []string{cbPaymentMonthly, cbPaymentSeasonal} }

func subscriptionDecisionReplies() []string { return []string{cbSubscribeNow, cbSubscribeLater} }

// scenarioNavReplies offers previous/next depending on position and always
// a continue control.
func scenarioNavReplies(current, total int) []string {
	var replies []string
	if current > 1 {
		replies = append(replies, cbScenarioPrev)
	}
	if current < total {
		replies = append(replies, cbScenarioNext)
	}
	return append(replies, cbScenarioContinue)
}

// repliesForState returns the reply set a funnel state expects.
func repliesForState(state State) []string {
	switch state {
	case StateReady:
		return startReplies()
	case StatePhone, StateEmail, StateInstagram, StateTelegramChannel,
		StateCustomers, StateConstraints, StateHelp:
		return skipReplies()
	case StatePhysicalStore:
		return yesNoReplies()
	case StateAdditionalInfo:
		return continueReplies()
	default:
		return backReplies()
	}
}
