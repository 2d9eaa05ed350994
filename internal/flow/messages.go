package flow

import (
	"fmt"
	"strings"
)

// Interaction tokens. These are the literal texts the transport shows as
// suggested replies and matches back verbatim.
const (
	tokenReady    = "آماده‌ام"
	tokenBack     = "🔙 بازگشت"
	tokenSkip     = "رد کردن"
	tokenContinue = "ادامه بدیم"
	tokenYes      = "آره"
	tokenNo       = "نه"

	menuContent  = "🧠 تولید محتوا"
	menuRenew    = "🔁 تمدید اشتراک"
	menuDiscount = "🎁 کد تخفیف"
	menuInvite   = "👥 دعوت از دوستان"
	menuStats    = "📊 آمار استفاده"
	menuHelp     = "❓ راهنما"

	kindCaptionButton  = "✍️ کپشن نویسی"
	kindReelsButton    = "🎬 سناریو ریلز"
	kindVisualButton   = "📷 ایده بصری"
	kindCalendarButton = "📅 تقویم محتوایی"

	cbConfirmYes       = "confirm_yes"
	cbConfirmNo        = "confirm_no"
	cbScenarioPrev     = "scenario_prev"
	cbScenarioNext     = "scenario_next"
	cbScenarioContinue = "scenario_continue"
	cbSubscribeNow     = "now"
	cbSubscribeLater   = "later"
	cbPaymentMonthly   = "payment_monthly_980000"
	cbPaymentSeasonal  = "payment_seasonal_7599000"
)

const msgGenericError = "خطایی رخ داده است. لطفاً دوباره تلاش کنید."

const msgWelcome = `سلام! من دستیار محتوای طلافروش هستم 💎

من سناریوهای ریلز اینستاگرامت رو کلمه به کلمه و تصویر به تصویر بهت میگم.

سناریوهایی که براساس شرایط تو و اصول محتوانویسی و با آنالیز محتوای وایرال نوشته شده.

برای شروع کار لازمه من یه سری اطلاعات از تو و گالری طلات داشته باشم تا در ادامه بتونم تقویم محتوایی و سناریو ریلزهات رو بهت بدم.

اگه آماده‌ای بزن روی "آماده‌ام":`

const msgReferralThanks = "🎁 با کد معرف وارد شدی! ممنون که به خانواده ما پیوستی."

const msgHelp = `🤖 راهنمای ربات تولید محتوا

🧠 تولید محتوا:
• کپشن نویسی: کپشن جذاب برای پست‌ها
• سناریو ریلز: ایده برای ویدیوهای کوتاه
• ایده بصری: پیشنهاد برای عکاسی محصولات
• تقویم محتوایی: برنامه هفتگی پست‌ها

🔁 تمدید اشتراک:
• پرداخت ماهانه یا فصلی
• مشاهده وضعیت اشتراک

📞 پشتیبانی: @rez77`

const msgUnknown = "متوجه نشدم چی گفتید. 🤔\nاز منو یکی از گزینه‌ها رو انتخاب کنید یا /help بزنید."

const msgBackToStart = "برگردیم به شروع. اگر آماده‌ای بزن روی \"آماده‌ام\":"

// Funnel question texts, used both when a step is first reached and when
// back-navigation restores it.
var statePrompts = map[State]string{
	StateReady:           msgBackToStart,
	StateName:            "چی صدات کنم؟",
	StatePhone:           "اگه مورد مهمی پیش اومد و میخواستم بهت پیام بدم، شمارت چنده؟",
	StateEmail:           "این مورد اختیاریه، اگه دوست داری مقاله‌های به‌روز برای تقویت طلافروشیت دریافت کنی، ایمیلت رو وارد کن:",
	StateGalleryName:     "اول از همه، اسم گالریت چیه؟",
	StateInstagram:       "آیدی پیج اینستاگرامت رو بده یه تحلیل بکنم:",
	StateTelegramChannel: "اگر کانال تلگرام هم داری بفرست یه چک بکنم:",
	StateCustomers:       "بیشتر مشتریات کیا هستن؟\n\nمثلاً: خانم‌های جوان، آقایان میانسال، عروس‌خانم‌ها و...",
	StateConstraints:     "چه باید و نبایدهایی رو باید برای سناریو تو رعایت کنم؟\n\nمثل محدودیت‌های شخصی یا منابع خاص یا لحن منحصربه‌فرد",
	StateHelp:            "کسیو داری که توی تولید محتوا کمکت کنه؟\n\nمثال توی ضبط یا تدوین یا آپلود",
	StatePhysicalStore:   "گالری حضوری هم داری یا نه هنوز؟",
	StateAdditionalInfo:  "حله، من هر سوالی داشتم پرسیدم، اگه فکر میکنی چیز خاصی هست که من باید بدونم ولی نپرسیدم بگو، وگرنه ادامه بدیم:",
}

const (
	msgInvalidPhone = "شماره تلفن معتبر نیست. لطفاً شماره موبایل معتبر وارد کنید یا رد کنید:"
	msgInvalidEmail = "ایمیل معتبر نیست. لطفاً ایمیل معتبر وارد کنید یا رد کنید:"
)

const msgSummaryQuestion = "آیا این خلاصه درست است؟"

const msgSummaryRejected = "باشه، هرجایی نیاز بود اصلاح کن و دوباره ادامه بده."

const msgSubscriptionPitch = `خب، حالا که نحوه کارم رو دیدی... 🤓
اگر حس کردی اینجور آدمی می‌تونه به گالریت کمک کنه، می‌تونیم با هم همکار بشیم!

هر ماه فقط ۹۸۰ هزار تومان (به قیمت یه دستبند ساده!) و من:
✅ تقویم محتوایی آماده می‌دم
✅ ریلزهای حرفه‌ای طراحی می‌کنم
✅ کلی ایده نو برای فروش بیشتر می‌ریزم تو جیبت!

پس... میخوای استخدامم کنی؟ 😎`

const (
	msgPaymentAccepted  = "عالی! برای ادامه یکی از گزینه‌های پرداخت را انتخاب کنید:"
	msgPaymentDeferred  = "باشه، هر وقت خواستی می‌تونی از منوی اصلی اشتراک تهیه کنی."
	msgBackToMenu       = "بازگشت به منوی اصلی"
	msgSubscribeFirst   = "برای استفاده از تولید محتوا، ابتدا باید اشتراک داشته باشید."
	msgCompleteProfile  = "لطفاً ابتدا پروفایل خود را تکمیل کنید. /start"
	msgChooseKind       = "چه نوع محتوایی می‌خواید تولید کنید؟"
	msgMoreContent      = "می‌خواید محتوای دیگری تولید کنید؟"
	msgDiscountAsk      = "کد تخفیف را ارسال کنید:"
	msgDiscountInvalid  = "کد تخفیف معتبر نیست یا منقضی شده است."
	msgSubExpired       = "اشتراک شما منقضی شده است.\nبرای ادامه استفاده از خدمات، یکی از گزینه‌های زیر را انتخاب کنید:"
	msgVoiceUnsupported = "متاسفانه الان نمی‌تونم پیام صوتی پردازش کنم. لطفاً پیامت رو بنویس."
	msgVoiceFailed      = "خطا در پردازش پیام صوتی. لطفاً دوباره تلاش کنید یا پیامت رو بنویس."
)

const (
	msgCaptionAsk = "محصول یا موضوعی که می‌خواید کپشن براش بنویسم رو توضیح بدید:\n\nمثال: انگشتر طلا با نگین الماس برای عروس‌خانم‌ها"
	msgReelsAsk   = "موضوع یا مناسبتی که می‌خواید سناریو ریلز براش داشته باشید رو بگید:\n\nمثال: فروش ویژه شب یلدا، معرفی مجموعه جدید، ولنتاین"
	msgVisualAsk  = "نوع محصولی که می‌خواید ایده عکاسی براش داشته باشید رو بگید:\n\nمثال: دستبند طلا، گردنبند مروارید، حلقه نامزدی\nاگر وسایل خاصی در دسترس دارید هم بگید."
)

func audioTooLargeMessage(maxMB int) string {
	return fmt.Sprintf("فایل صوتی خیلی بزرگ است. حداکثر اندازه: %dMB", maxMB)
}

func audioTooLongMessage(maxSeconds int) string {
	return fmt.Sprintf("فایل صوتی خیلی طولانی است. حداکثر مدت: %d دقیقه", maxSeconds/60)
}

func welcomeBackMessage(name string, isSubscribed bool) string {
	status := "⚠️ دوره آزمایشی‌ت تموم شده. برای ادامه، اشتراک تهیه کن."
	if isSubscribed {
		status = "🎯 اشتراک‌ت فعاله و می‌تونی از تمام امکانات استفاده کنی!"
	}
	return fmt.Sprintf("سلام %s! 👋\n\nخوش برگشتی! آماده‌ام تا محتوای فوق‌العاده برای گالری‌ت تولید کنم.\n\n%s", name, status)
}

const scenarioDivider = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

func formatScenarioMessage(scenario string, num, total int) string {
	return fmt.Sprintf("🎬 سناریو %d از %d\n\n%s\n\n%s\n\n%s", num, total, scenarioDivider, strings.TrimSpace(scenario), scenarioDivider)
}

func paymentMessage(paymentType string, amount int64, link string) string {
	return fmt.Sprintf("💳 پرداخت %s\n\nمبلغ: %s تومان\nلینک پرداخت: %s\n\n⚠️ پس از پرداخت، لطفاً کد پیگیری را برای ما ارسال کنید تا اشتراک‌تان فعال شود.",
		paymentType, formatAmount(amount), link)
}

// formatAmount renders 980000 as 980,000.
func formatAmount(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteString(",")
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// Static proof-of-value fallback when the generator is unavailable right
// after onboarding.
var fallbackScenarios = []string{
	"سناریو 1: معرفی گالری با نمایش محصولات",
	"سناریو 2: آموزش انتخاب طلا",
	"سناریو 3: نمایش کارهای سفارشی",
}

// Control tokens are the machine-readable button payloads. Transports render
// them as inline controls with the labels below; plain reply buttons carry
// their visible text directly.
var callbackTokens = map[string]string{
	cbConfirmYes:       "بله ✅",
	cbConfirmNo:        "نه، دوباره می‌گم",
	cbScenarioPrev:     "◀️ قبلی",
	cbScenarioNext:     "بعدی ▶️",
	cbScenarioContinue: "ادامه ✅",
	cbSubscribeNow:     "همین الان می‌خرم 🔥",
	cbSubscribeLater:   "بعداً",
	cbPaymentMonthly:   "اشتراک ماهانه - ۹۸۰,۰۰۰ تومان",
	cbPaymentSeasonal:  "اشتراک فصلی - ۷,۵۹۹,۰۰۰ تومان",
}

// IsCallbackToken reports whether s is a control token rather than visible
// button text.
func IsCallbackToken(s string) bool {
	_, ok := callbackTokens[s]
	return ok
}

// CallbackLabel returns the user-facing label for a control token. Unknown
// tokens come back unchanged.
func CallbackLabel(token string) string {
	if label, ok := callbackTokens[token]; ok {
		return label
	}
	return token
}
