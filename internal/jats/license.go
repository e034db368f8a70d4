package jats

import "strings"

// Known license texts that carry no URL of their own.
var licenseTextURLs = map[string]string{
	"This is an Open Access article distributed under the terms of the Creative Commons Attribution License, ( http://creativecommons.org/licenses/by/3.0/ ) which permits unrestricted use, distribution, and reproduction in any medium, provided the original work is properly cited.": "http://creativecommons.org/licenses/by/3.0/",
	"This is an open-access article, free of all copyright, and may be freely reproduced, distributed, transmitted, modified, built upon, or otherwise used by anyone for any lawful purpose. The work is made available under the Creative Commons CC0 public domain dedication.":                 "http://creativecommons.org/publicdomain/zero/1.0/",
	"License information: This is an open-access article distributed under the terms of the Creative Commons Attribution License, which permits unrestricted use, distribution, and reproduction in any medium, provided the original work is properly cited.":                                "http://creativecommons.org/licenses/by/3.0/",
}

// Copyright statement suffixes that imply a license.
var copyrightSuffixURLs = map[string]string{
	"This is an open-access article distributed under the terms of the Creative Commons Attribution License, which permits unrestricted use, distribution, and reproduction in any medium, provided the original author and source are credited.": "http://creativecommons.org/licenses/by/4.0/",
	"This is an open access article distributed under the Creative Commons Attribution License, which permits unrestricted use, distribution, and reproduction in any medium, provided the original work is properly cited.":                      "http://creativecommons.org/licenses/by/3.0/",
}

var licenseURLFixes = map[string]string{
	"http://creativecommons.org/licenses/by/2.0":    "http://creativecommons.org/licenses/by/2.0/",
	"http://creativecommons.org/licenses/by/2.5":    "http://creativecommons.org/licenses/by/2.5/",
	"http://creativecommons.org/licenses/by/3.0":    "http://creativecommons.org/licenses/by/3.0/",
	"http://creativecommons.org/licenses/by/4.0":    "http://creativecommons.org/licenses/by/4.0/",
	"http://creativecommons.org/licenses/by-sa/3.0": "http://creativecommons.org/licenses/by-sa/3.0/",
	"https://creativecommons.org/licenses/by/4.0/":  "http://creativecommons.org/licenses/by/4.0/",
}

// licensing returns the license URL, the license text when no URL could be
// found, and the copyright statement when no license element exists.
func licensing(p permissions) (licenseURL, licenseText, statement string) {
	switch {
	case len(p.Licenses) > 0:
		lic := p.Licenses[0]
		licenseURL = lic.Href
		if licenseURL == "" && len(lic.Links) > 0 {
			licenseURL = lic.Links[0]
		}
		if licenseURL == "" {
			licenseText = lic.Text
			licenseURL = licenseTextURLs[licenseText]
		}
	case p.CopyrightStatement != nil && p.CopyrightStatement.String() != "":
		statement = p.CopyrightStatement.String()
		for suffix, url := range copyrightSuffixURLs {
			if strings.HasSuffix(statement, suffix) {
				licenseURL = url
				break
			}
		}
	}
	if fixed, ok := licenseURLFixes[licenseURL]; ok {
		licenseURL = fixed
	}
	return licenseURL, licenseText, statement
}

func copyrightHolder(p permissions) string {
	if p.CopyrightHolder != nil {
		if s := p.CopyrightHolder.String(); s != "" {
			return s
		}
	}
	if p.CopyrightStatement != nil {
		if s := p.CopyrightStatement.String(); s != "" {
			first, _, _ := strings.Cut(s, ".")
			return first + "."
		}
	}
	return ""
}
