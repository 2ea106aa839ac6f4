package bot

// User-facing strings. The community this bot serves runs in Arabic;
// operational logs stay in English.
const (
	msgGuildOnly        = "هذا الأمر متاح داخل السيرفر فقط"
	msgNoPermission     = "ليس لديك صلاحية لاستخدام هذا الأمر"
	msgFailed           = "حدث خطأ، حاول مرة أخرى"
	msgHierarchyDenied  = "لا يمكن تعديل أدوار هذا العضو"
	msgTicketDuplicate  = "لديك تذكرة نشطة بالفعل"
	msgTicketNotFound   = "لا توجد تذكرة مرتبطة بهذه القناة"
	msgTicketClaimed    = "تم استلام التذكرة بواسطة <@%s>"
	msgTicketClaimTaken = "هذه التذكرة مستلمة بالفعل"
	msgTicketClosed     = "تم إغلاق التذكرة"
	msgTicketClosing    = "سيتم حذف هذه القناة خلال 5 ثوانٍ"
	msgTicketReopened   = "تمت إعادة فتح التذكرة"
	msgTicketDeleted    = "تم حذف التذكرة"
	msgTicketCreated    = "تم فتح تذكرتك: <#%s>"
	msgTicketPanelTitle = "نظام التذاكر"
	msgTicketPanelBody  = "اختر نوع التذكرة لفتح قناة خاصة مع الإدارة"
	msgVisaGranted      = "تم قبولك في السيرفر، أهلاً بك 🎉"
	msgVisaRevoked      = "تم رفض طلبك"
	msgVisaDone         = "تم تنفيذ القرار لـ <@%s>"
	msgVisaAlready      = "هذا العضو حاصل على الفيزا بالفعل"
	msgVisaNotIssued    = "هذا العضو لا يملك رتبة الفيزا"
	msgVisaNoRole       = "لم يتم ضبط رتبة الفيزا بعد، استخدم الإعدادات أولاً"
	msgWarnedUser       = "تم تحذيرك في السيرفر. السبب: %s"
	msgSetXPDone        = "تم ضبط نقاط <@%s> إلى %d (المستوى %d)"
	msgSetXPNegative    = "لا يمكن أن تكون النقاط أقل من صفر"
	msgWarningsCount    = "عدد تحذيرات <@%s>: %d"
	msgWarningsCleared  = "تم مسح تحذيرات <@%s>"
	msgRankUnranked     = "لا توجد نقاط بعد، شارك في المحادثة أولاً"
	msgLeaderboardEmpty = "لوحة الصدارة فارغة حالياً"
	msgCustomSaved      = "تم حفظ الأمر !%s"
	msgCustomRemoved    = "تم حذف الأمر !%s"
	msgCustomMissing    = "لا يوجد أمر بهذا الاسم"
	msgCustomEmpty      = "لا توجد أوامر مخصصة بعد"
	msgCustomBadName    = "اسم الأمر يجب أن يكون حروفاً صغيرة وبحد أقصى 32 حرفاً"
	msgAutomodUpdated   = "تم تحديث إعدادات الحماية"
	msgSettingsUpdated  = "تم تحديث الإعدادات"
	msgSettingsBadValue = "إعداد غير معروف أو قيمة ناقصة"
	msgDefaultLevelUp   = "مبروك {user}! وصلت المستوى {level} 🎉"
)
