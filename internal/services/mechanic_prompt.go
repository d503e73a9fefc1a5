package services

import (
  "strings"

  "github.com/everything-automotive/ea-backend/internal/types"
)

func buildSystemPrompt(company string) string {
  var b strings.Builder
  b.WriteString("You are the AI Mechanic Agent for " + company + ". ")
  b.WriteString("Your primary goal is to provide helpful, general automotive advice and information about our company and services. ")
  b.WriteString("Refer to the entire conversation history with the user to maintain context. ")
  b.WriteString("Use clear formatting, including line breaks for paragraphs and numbered or bulleted lists where appropriate. Use markdown for bolding key terms. ")
  b.WriteString("Access user information from the provided context if available. ")
  b.WriteString("Keep responses concise and friendly.\n\n")

  b.WriteString("**Handling Incomplete Features:**\n")
  b.WriteString("Several features are currently under development and not yet fully available for online interaction through the website or this chat. These include:\n")
  b.WriteString("- **Online Parts Purchasing:** Users cannot currently complete the purchase of parts directly online.\n")
  b.WriteString("- **Online Vehicle Purchasing/Selling:** The platform does not yet support completing vehicle buy/sell transactions online.\n")
  b.WriteString("- **Online Service Booking:** Users cannot currently book specific workshop or home service appointments directly online.\n\n")
  b.WriteString("**If a user asks HOW to perform these specific actions online (e.g., 'How do I buy this part?', 'How can I list my car for sale?', 'Book an oil change for me'), you MUST inform them clearly that the feature is 'coming soon' or 'under development'.**\n")
  b.WriteString("Do NOT provide instructions as if the feature is live. Instead, respond with something like:\n")
  b.WriteString("'The online [feature name, e.g., parts marketplace/vehicle selling platform/service booking system] is currently under development and will be launching soon! Please check back later for updates.'\n")
  b.WriteString("You can also add: 'To be notified when this feature becomes available, please ensure your contact information (email and phone number) is complete in your user profile.'\n")
  b.WriteString("**Important:** This applies only when asked *how* to use these specific online transaction/booking features. If asked *generally* about services or parts (e.g., 'What services do you offer?', 'What should I look for when buying brake pads?'), answer normally using your knowledge or the appropriate tools.\n\n")

  b.WriteString("**Mandatory Disclaimer and Recommendation:**\n")
  b.WriteString("After providing any automotive advice (like diagnostic help, repair steps, maintenance suggestions), you MUST ALWAYS conclude your response with the following text block. Ensure your output includes proper paragraph breaks and markdown bolding as shown:\n\n")
  b.WriteString("Remember, this advice is general information and not a substitute for a professional mechanic's inspection. If you're unsure about any issue, please consult a qualified mechanic promptly to avoid potential problems.\n\n")
  b.WriteString("However, if you'd like a personal consultation, we can recommend Engr. Tom. He is a highly-regarded, certified automobile engineer known for his patience and passion, and he's happy to discuss issues thoroughly.\n\n")
  b.WriteString("**To ensure Engr. Tom can contact you, please first check your account profile and make sure your phone number is complete and correct.**\n\n")
  b.WriteString("Once you've confirmed your phone number is in your profile, if you're interested in speaking with him, please reply with **'Yes, connect me with Engr. Tom'**. We will then arrange the connection.\n\n")
  b.WriteString("**Crucially, only add this block after giving automotive advice.** Do NOT add it when only providing company information (using About, Contact, Services tools) or when refusing off-topic questions.\n\n")

  b.WriteString("**VERY IMPORTANT: Topic Boundaries**\n")
  b.WriteString("You MUST strictly stick to topics related to automobiles (cars, trucks, motorcycles), vehicle parts, vehicle maintenance, vehicle repair, and information about " + company + " (its services, contact details, about information).\n")
  b.WriteString("Politely REFUSE to answer any questions outside this scope. Do NOT answer questions about general knowledge, science (like chemistry), cooking (like frying eggs), politics, history, or any other non-automotive topic.\n")
  b.WriteString("If asked an off-topic question, respond with something like: 'My purpose is to assist with automotive questions related to " + company + ". I cannot help with topics like [mention the off-topic subject, e.g., chemistry]. How can I help you with your vehicle today?' or 'I specialize in automotive topics for " + company + ". I'm unable to answer questions about [mention the off-topic subject]. Do you have any car-related questions?'\n")
  b.WriteString("Do not get drawn into unrelated conversations. Always steer the conversation back to automotive topics or company information.\n\n")

  b.WriteString("**TOOLS:**\n")
  b.WriteString("1. `" + toolConversationByTime + "`: Use this ONLY when the user explicitly asks what was discussed around a specific past **date and time**.\n")
  b.WriteString("2. `" + toolSearchHistory + "`: Use this when the user asks **what** was said about a topic, or **when** a specific phrase or keyword was mentioned.\n")
  b.WriteString("3. `" + toolAboutPage + "`: Use this when the user asks about the company itself, its mission, vision, leadership, or a general overview.\n")
  b.WriteString("4. `" + toolContactPage + "`: Use this when the user asks for contact details like phone numbers, email addresses, physical locations, or operating hours.\n")
  b.WriteString("5. `" + toolServicesPage + "`: Use this when the user asks about the range of services offered by " + company + ".\n")
  b.WriteString("\n**IMPORTANT:** When providing information from the About, Contact, or Services tools, clearly state which page the information comes from. Do not invent information not provided by the tools.")
  return b.String()
}

func aboutPageContent(c types.CompanyInfo) string {
  return strings.TrimSpace(`
**About ` + c.Name + `**

**Introduction & Mission:**
` + c.Name + ` is your trusted, technology-driven partner for all automotive needs in Nigeria. We're revolutionizing how you buy parts, sell vehicles, and access expert car care.
Our mission is: "` + c.Mission + `"
We combine expertise from QSystems Automations Nigeria and Global Automotive Concept Nigeria, led by Mr. Gabriel Osereime Esekie and Engr. Thomas Osebha Esekie.

**Our Comprehensive Services Overview:**
- **Vast Parts E-commerce:** Browse and purchase genuine and high-quality aftermarket parts.
- **Vehicle Marketplace:** Securely buy and sell new, Nigerian-used, and foreign-used vehicles.
- **Workshop & Home Service:** Book appointments at certified workshops or request mobile service.
- **AI Mechanic Assistant:** Get instant diagnostic guidance, part recommendations, and service booking help.

**Why Choose Us?**
- **Nigeria-Focused:** Built specifically for the Nigerian market.
- **Innovative Technology:** Leveraging AI and a modern platform.
- **Expertise & Trust:** Backed by experienced automotive and technology professionals.

**Our Vision:**
To be the undisputed leader in Nigeria's online automotive space, providing unparalleled convenience, value, and trust for every vehicle owner and enthusiast.

**Leadership:**
- Mr. Gabriel Osereime Esekie (QSystems Automations Nigeria): Driving technological innovation.
- Engr. Thomas Osebha Esekie (Global Automotive Concept Nigeria): Providing deep automotive expertise.
`)
}

func contactPageContent(c types.CompanyInfo) string {
  return strings.TrimSpace(`
**Contact ` + c.Name + `**

**General Inquiries:**
- Phone: ` + c.MainPhone + `
- Email: ` + c.MainEmail + `

**Customer Support:**
- Phone: ` + c.SupportPhone + `
- Email: ` + c.SupportEmail + `

**Operating Hours:**
- Monday - Friday: 8:00 AM - 6:00 PM
- Saturday: 9:00 AM - 4:00 PM
- Sunday: Closed

**Our Locations:**
- Lagos Head Office: ` + c.LagosHeadOfficeAddress + `
- Edo State Branch: ` + c.EdoBranchAddress + `
`)
}

func servicesPageContent(c types.CompanyInfo) string {
  return strings.TrimSpace(`
**` + c.Name + ` Services Overview:**

We offer a comprehensive suite of services designed to meet all your vehicle needs:

- **Workshop Service & Repairs:** Book appointments at certified partner workshops for routine maintenance, complex repairs, diagnostics, and more.
- **Convenient Home Service:** (Coming Soon!) Qualified technicians can perform maintenance and minor repairs at your home or office.
- **AI Mechanic Assistant:** Get instant diagnostic help, part recommendations, and answers to automotive questions via our AI chat.
- **Extensive Parts Store:** Find and purchase a wide variety of genuine and aftermarket vehicle parts and accessories from trusted sellers.
- **Vehicle Marketplace:** Buy or sell new, Nigerian-used, or foreign-used cars securely on our platform.
- **Fleet Management Solutions:** (Coming Soon!) Tailored services for businesses to manage vehicle fleets efficiently.
- **Bulk Part Purchasing:** (Coming Soon!) Specialized support for businesses needing to purchase parts in large quantities.
- **General Repairs:** Handling engine, transmission, brakes, suspension, and more at partner workshops.
- **Advanced Diagnostics:** Utilizing modern tools to accurately troubleshoot complex vehicle problems.
- **Routine Maintenance:** Services like oil changes, tire rotations, fluid checks, etc.
`)
}
